// Package places searches date-friendly venues through the Google Places API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/oggyb/ember/internal/config"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("places disabled")

const fieldMask = "places.id,places.displayName,places.formattedAddress,places.rating," +
	"places.userRatingCount,places.priceLevel,places.googleMapsUri,places.websiteUri," +
	"places.types,places.photos"

// DisplayName mirrors the Places API localized text.
type DisplayName struct {
	Text string `json:"text"`
}

type Photo struct {
	Name string `json:"name"`
}

// Place keeps the Places API field names so clients can render either source.
type Place struct {
	ID               string      `json:"id"`
	DisplayName      DisplayName `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress"`
	Rating           float64     `json:"rating,omitempty"`
	UserRatingCount  int64       `json:"userRatingCount,omitempty"`
	PriceLevel       string      `json:"priceLevel,omitempty"`
	GoogleMapsURI    string      `json:"googleMapsUri,omitempty"`
	WebsiteURI       string      `json:"websiteUri,omitempty"`
	Types            []string    `json:"types"`
	Photos           []Photo     `json:"photos,omitempty"`
}

// Query is one text search. Coordinates bias the result when both are set.
type Query struct {
	Text      string
	Category  string
	Latitude  *float64
	Longitude *float64
	// Radius in meters, defaults to 10km.
	Radius float64
	Limit  int
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Places.BaseURL, "/"),
		apiKey:  cfg.Places.APIKey,
		http:    &http.Client{Timeout: cfg.Places.Timeout},
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

// Search runs a places:searchText request.
func (c *Client) Search(ctx context.Context, q Query) ([]Place, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		text = strings.ReplaceAll(q.Category, "_", " ")
	}
	body := map[string]any{"textQuery": text}
	if q.Limit > 0 {
		body["maxResultCount"] = q.Limit
	}
	if q.Latitude != nil && q.Longitude != nil {
		radius := q.Radius
		if radius <= 0 {
			radius = 10000
		}
		body["locationBias"] = map[string]any{
			"circle": map[string]any{
				"center": map[string]float64{"latitude": *q.Latitude, "longitude": *q.Longitude},
				"radius": radius,
			},
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "error.message").String())
	}

	var out []Place
	for _, p := range gjson.GetBytes(raw, "places").Array() {
		place := Place{
			ID:               p.Get("id").String(),
			DisplayName:      DisplayName{Text: p.Get("displayName.text").String()},
			FormattedAddress: p.Get("formattedAddress").String(),
			Rating:           p.Get("rating").Float(),
			UserRatingCount:  p.Get("userRatingCount").Int(),
			PriceLevel:       p.Get("priceLevel").String(),
			GoogleMapsURI:    p.Get("googleMapsUri").String(),
			WebsiteURI:       p.Get("websiteUri").String(),
		}
		for _, t := range p.Get("types").Array() {
			place.Types = append(place.Types, t.String())
		}
		for _, ph := range p.Get("photos.#.name").Array() {
			place.Photos = append(place.Photos, Photo{Name: ph.String()})
		}
		out = append(out, place)
	}
	return out, nil
}
