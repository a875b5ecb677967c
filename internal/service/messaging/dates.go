package messaging

import (
	"context"
	"strings"

	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/places"
	"github.com/oggyb/ember/internal/utils/geo"
	"github.com/oggyb/ember/internal/utils/ids"
)

const dateSearchText = "romantic date spots"

type PlaceData struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	MapsURL string `json:"maps_url"`
}

type DateSuggestionRequest struct {
	MatchID   string     `json:"match_id" binding:"required"`
	Category  string     `json:"category"`
	PlaceData *PlaceData `json:"place_data"`
	Message   string     `json:"message"`
}

type Center struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DateSuggestion is either a list of places or the chat message that proposed one.
type DateSuggestion struct {
	Places  []places.Place `json:"places,omitempty"`
	Source  string         `json:"source,omitempty"`
	Center  *Center        `json:"center,omitempty"`
	City    string         `json:"city,omitempty"`
	Message *db.Message    `json:"message,omitempty"`
}

// SuggestDate finds date places for a match, or proposes a chosen one in chat.
//
// Behavior:
//   - Caller must be a participant of an unblocked match.
//   - With place_data the place is sent to the partner as a text message.
//   - Otherwise search near the midpoint of both users; with one side missing
//     coordinates the caller's position, then the caller's city, is used.
func (s *Service) SuggestDate(ctx context.Context, caller *db.User, req DateSuggestionRequest) (*DateSuggestion, error) {
	m, err := s.guard.Active(ctx, req.MatchID, caller.ID)
	if err != nil {
		return nil, err
	}

	if req.PlaceData != nil {
		msg := &db.Message{
			ID:          ids.New("msg"),
			MatchID:     m.ID,
			SenderID:    caller.ID,
			MessageType: db.MessageText,
			Content:     dateMessage(req.PlaceData, req.Message),
			Reactions:   map[string]string{},
			CreatedAt:   s.now(),
		}
		if err := s.deliver(ctx, m, caller, msg); err != nil {
			return nil, err
		}
		return &DateSuggestion{Message: msg}, nil
	}

	partner, err := s.users.FindByID(ctx, m.Partner(caller.ID))
	if err != nil {
		return nil, err
	}

	out := &DateSuggestion{}
	q := places.Query{Text: dateSearchText, Category: req.Category, Limit: 10}
	switch a, b := caller.Location, partner.Location; {
	case a.HasCoordinates() && b.HasCoordinates():
		lat, lon := geo.Midpoint(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		out.Center = &Center{Latitude: lat, Longitude: lon}
	case a.HasCoordinates():
		out.Center = &Center{Latitude: *a.Latitude, Longitude: *a.Longitude}
	case a.City != nil && *a.City != "":
		out.City = *a.City
		q.Text = dateSearchText + " in " + *a.City
	default:
		return nil, svcErr.InvalidArgument("Set your location to get date suggestions")
	}
	if out.Center != nil {
		q.Latitude, q.Longitude = &out.Center.Latitude, &out.Center.Longitude
	}

	res, err := s.venues.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	out.Places, out.Source = res.Places, res.Source
	return out, nil
}

func dateMessage(p *PlaceData, note string) string {
	lines := []string{"📍 Date idea: " + strings.TrimSpace(p.Name)}
	if p.Address != "" {
		lines = append(lines, p.Address)
	}
	if p.MapsURL != "" {
		lines = append(lines, p.MapsURL)
	}
	if note = strings.TrimSpace(note); note != "" {
		lines = append(lines, note)
	}
	return strings.Join(lines, "\n")
}
