package venues_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/places"
	"github.com/oggyb/ember/internal/service/venues"
	"github.com/oggyb/ember/internal/testutil"
)

type fakeSearcher struct {
	places []places.Place
	err    error
	delay  time.Duration
	last   places.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q places.Query) ([]places.Place, error) {
	f.last = q
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.places, f.err
}

func TestSearch_Live(t *testing.T) {
	appCtx := testutil.App(t)
	fake := &fakeSearcher{places: []places.Place{{ID: "p1", DisplayName: places.DisplayName{Text: "Blue Bottle"}}}}
	svc := venues.NewVenueService(appCtx, venues.WithSearcher(fake))

	res, err := svc.Search(context.Background(), places.Query{Category: "cafe"})
	require.NoError(t, err)
	assert.Equal(t, venues.SourceLive, res.Source)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "cafe", fake.last.Category)
}

func TestSearch_FallsBackToCurated(t *testing.T) {
	appCtx := testutil.App(t)

	for name, fake := range map[string]*fakeSearcher{
		"error": {err: errors.New("quota exceeded")},
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			svc := venues.NewVenueService(appCtx, venues.WithSearcher(fake))
			res, err := svc.Search(context.Background(), places.Query{Category: "park"})
			require.NoError(t, err)
			assert.Equal(t, venues.SourceCurated, res.Source)
			assert.Equal(t, places.Curated("park"), res.Places)
		})
	}
}

func TestSearch_TimeoutFallsBack(t *testing.T) {
	appCtx := testutil.App(t)
	appCtx.Config.Places.Timeout = 20 * time.Millisecond
	svc := venues.NewVenueService(appCtx, venues.WithSearcher(&fakeSearcher{delay: time.Second}))

	res, err := svc.Search(context.Background(), places.Query{Category: "all"})
	require.NoError(t, err)
	assert.Equal(t, venues.SourceCurated, res.Source)
	assert.Len(t, res.Places, len(places.Curated("")))
}

func TestEndpoints(t *testing.T) {
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, testutil.Discoverable("alice", "female"))
	fake := &fakeSearcher{places: []places.Place{{ID: "p1"}}}
	r := testutil.Router(appCtx, venues.NewRegistrar(appCtx, venues.WithSearcher(fake)))
	tok := testutil.Token(t, appCtx, "alice")

	w := testutil.Do(t, r, http.MethodGet, "/api/places/search?query=sushi&lat=40.7&lng=-74", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sushi", fake.last.Text)
	require.NotNil(t, fake.last.Latitude)
	assert.InDelta(t, 40.7, *fake.last.Latitude, 1e-9)

	w = testutil.Do(t, r, http.MethodGet, "/api/places/search?lat=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(t, r, http.MethodGet, "/api/places/categories", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.Decode[map[string][]places.Category](t, w)["categories"], len(places.Categories()))

	w = testutil.Do(t, r, http.MethodGet, "/api/locations/popular", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New York", testutil.Decode[map[string][]places.Location](t, w)["locations"][0].City)
}
