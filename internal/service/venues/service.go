package venues

import (
	"context"
	"errors"
	"strings"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/degrade"
	"github.com/oggyb/ember/internal/places"
)

var errNoResults = errors.New("no places found")

const (
	SourceLive    = "live"
	SourceCurated = "curated"
)

// Searcher is the live places dependency.
type Searcher interface {
	Search(ctx context.Context, q places.Query) ([]places.Place, error)
}

// Service serves venue search for the places endpoints and date suggestions.
type Service struct {
	appCtx   *app.AppContext
	searcher Searcher
}

type Option func(*Service)

func WithSearcher(s Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

func NewVenueService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{appCtx: appCtx, searcher: places.New(appCtx.Config)}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Result struct {
	Places []places.Place `json:"places"`
	Source string         `json:"source"`
}

// Search runs the live search and degrades to the curated list.
//
// Behavior:
//   - Disabled client, timeout, upstream error or an empty answer all fall back
//     to the curated venues of q.Category.
//   - Source reports which list was returned.
func (s *Service) Search(ctx context.Context, q places.Query) (*Result, error) {
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "all" {
		q.Category = ""
	}

	policy := degrade.Policy[*Result]{
		Name:    "places",
		Timeout: s.appCtx.Config.Places.Timeout,
		Logger:  s.appCtx.Logger,
		Fallback: func(context.Context, error) (*Result, error) {
			return &Result{Places: places.Curated(q.Category), Source: SourceCurated}, nil
		},
	}
	return policy.Do(ctx, func(ctx context.Context) (*Result, error) {
		found, err := s.searcher.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, errNoResults
		}
		return &Result{Places: found, Source: SourceLive}, nil
	})
}
