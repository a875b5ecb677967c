package places_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/places"
	"github.com/oggyb/ember/internal/testutil"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/places:searchText", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-Goog-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Goog-FieldMask"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "coffee", body["textQuery"])
		assert.Contains(t, body, "locationBias")

		_, _ = w.Write([]byte(`{"places":[{
			"id":"p1","displayName":{"text":"Blue Bottle"},"formattedAddress":"1 Main St",
			"rating":4.6,"userRatingCount":120,"priceLevel":"PRICE_LEVEL_MODERATE",
			"types":["cafe","food"],"photos":[{"name":"places/p1/photos/a"}]}]}`))
	}))
	defer srv.Close()

	cfg := config.New()
	cfg.Places.BaseURL = srv.URL + "/v1"
	cfg.Places.APIKey = "key-1"
	cfg.Places.Timeout = time.Second

	got, err := places.New(cfg).Search(context.Background(), places.Query{
		Text:      "coffee",
		Latitude:  testutil.Float(40.7),
		Longitude: testutil.Float(-74),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Bottle", got[0].DisplayName.Text)
	assert.Equal(t, int64(120), got[0].UserRatingCount)
	assert.Equal(t, []string{"cafe", "food"}, got[0].Types)
	assert.Equal(t, "places/p1/photos/a", got[0].Photos[0].Name)
}

func TestSearch_Disabled(t *testing.T) {
	cfg := config.New()
	cfg.Places.APIKey = ""
	_, err := places.New(cfg).Search(context.Background(), places.Query{Text: "bar"})
	assert.ErrorIs(t, err, places.ErrDisabled)
}

func TestCurated(t *testing.T) {
	assert.Len(t, places.Curated("all"), len(places.Curated("")))
	for _, p := range places.Curated("cafe") {
		assert.Contains(t, p.Types, "cafe")
	}
	assert.NotEmpty(t, places.Curated("cafe"))
	assert.Empty(t, places.Curated("casino"))
}
