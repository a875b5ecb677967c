package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/degrade"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/llm"
	"github.com/oggyb/ember/internal/repository"
)

const (
	compatibleFallbackSize = 10
	compatiblePoolSize     = 20
	compatibleResultSize   = 5
	dailyPickSize          = 5
	standoutSize           = 10
	standoutWindow         = 7 * 24 * time.Hour
)

// Completer is the LLM dependency used for compatibility ranking.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Service implements the discovery feed and the ranked views built on it.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	likes   *repository.LikeRepository
	matches *repository.MatchRepository
	blocks  *repository.BlockRepository
	picks   *repository.DailyPickRepository
	llm     Completer
	now     func() time.Time
}

// Option customizes the Service, mostly for tests.
type Option func(*Service)

func WithCompleter(c Completer) Option {
	return func(s *Service) { s.llm = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewDiscoveryService creates the discovery service with dependencies from AppContext.
func NewDiscoveryService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		likes:   repository.NewLikeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		picks:   repository.NewDailyPickRepository(appCtx.DB),
		llm:     llm.New(appCtx.Config),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// exclusions returns every id the requester must never see in a feed.
func (s *Service) exclusions(ctx context.Context, requesterID string) (map[string]struct{}, error) {
	out := map[string]struct{}{requesterID: {}}
	for _, fetch := range []func(context.Context, string) ([]string, error){
		s.likes.LikedIDs,
		s.matches.PartnerIDs,
		s.blocks.BlockerIDs,
		s.blocks.BlockedIDs,
	} {
		ids, err := fetch(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// candidates runs the full pipeline without the final truncation.
//
// Behavior:
//   - Requester must be verified (403 otherwise, never an empty list).
//   - Excludes liked users, match partners, blocks in both directions and self.
//   - Coarse gender filter from interested_in unless it is "everyone".
//   - Advanced filters, then distance, then priority buckets.
func (s *Service) candidates(ctx context.Context, requester *db.User) ([]db.User, error) {
	if !requester.Verified() {
		return nil, svcErr.ErrVerificationRequired
	}

	excluded, err := s.exclusions(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	q := repository.DiscoverQuery{Limit: s.appCtx.Config.Limits.DiscoverScanLimit}
	for id := range excluded {
		q.Exclude = append(q.Exclude, id)
	}
	sort.Strings(q.Exclude)
	if in := requester.InterestedIn; in != nil && *in != "" && *in != "everyone" {
		q.Gender = *in
	}

	users, err := s.users.ListDiscoverable(ctx, q)
	if err != nil {
		return nil, err
	}

	filtered := users[:0]
	for i := range users {
		if MatchesFilters(requester.Filters, &users[i]) {
			filtered = append(filtered, users[i])
		}
	}
	filtered = applyDistance(requester, filtered, requester.Filters.MaxDistance)
	return Prioritize(filtered, s.now()), nil
}

// Discover returns the swipe feed for requester.
//
// Example:
//
//	profiles, err := svc.Discover(ctx, currentUser) // at most DISCOVER_LIMIT profiles
func (s *Service) Discover(ctx context.Context, requester *db.User) ([]db.User, error) {
	s.appCtx.Logger.Debug("Discover called", "requester", requester.ID)

	users, err := s.candidates(ctx, requester)
	if err != nil {
		return nil, err
	}
	if limit := s.appCtx.Config.Limits.DiscoverLimit; len(users) > limit {
		users = users[:limit]
	}

	s.appCtx.Logger.Debug("Discover result", "requester", requester.ID, "count", len(users))
	return users, nil
}

// MostCompatible ranks the feed with the LLM and falls back to shared interests.
//
// Behavior:
//   - Empty feed or a requester without interests: first 10 of the feed.
//   - Otherwise the top 20 go to the ranking model, which answers with up to 5 indices.
//   - Any ranking failure (disabled, timeout, bad reply) sorts by shared interests
//     and returns the first 5.
func (s *Service) MostCompatible(ctx context.Context, requester *db.User) ([]db.User, error) {
	feed, err := s.Discover(ctx, requester)
	if err != nil {
		return nil, err
	}
	if len(feed) == 0 || len(requester.Interests) == 0 {
		return head(feed, compatibleFallbackSize), nil
	}

	pool := head(feed, compatiblePoolSize)
	policy := degrade.Policy[[]db.User]{
		Name:    "llm_ranking",
		Timeout: s.appCtx.Config.LLM.Timeout,
		Logger:  s.appCtx.Logger,
		Fallback: func(context.Context, error) ([]db.User, error) {
			return head(byShared(requester, pool), compatibleResultSize), nil
		},
	}
	return policy.Do(ctx, func(ctx context.Context) ([]db.User, error) {
		return s.rank(ctx, requester, pool)
	})
}

type profileSummary struct {
	Name      string   `json:"name"`
	Interests []string `json:"interests"`
	Bio       string   `json:"bio"`
}

func (s *Service) rank(ctx context.Context, requester *db.User, pool []db.User) ([]db.User, error) {
	summary := make([]profileSummary, len(pool))
	for i, u := range pool {
		summary[i] = profileSummary{Name: u.Name, Interests: u.Interests}
		if u.Bio != nil {
			summary[i].Bio = *u.Bio
		}
	}
	profiles, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Complete(ctx,
		"You are a dating app matchmaker. Return a JSON array of indices (0-based) of the 5 most "+
			"compatible profiles, ordered by compatibility. Only return the array, nothing else.",
		fmt.Sprintf("User interests: %s\n\nProfiles:\n%s", strings.Join(requester.Interests, ", "), profiles),
		100,
	)
	if err != nil {
		return nil, err
	}
	idx, err := llm.Indices(reply, len(pool))
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, errors.New("ranking returned no profiles")
	}

	out := make([]db.User, 0, compatibleResultSize)
	for _, i := range head(idx, compatibleResultSize) {
		out = append(out, pool[i])
	}
	return out, nil
}

// DailyPicks returns today's picks, choosing them on the first call of the UTC day.
//
// Behavior:
//   - Picks are the 5 feed candidates with the most shared interests.
//   - Stored with insert-or-ignore on (user, date) and re-read, so concurrent
//     first requests agree on one set.
//   - Picks the requester has liked, matched or blocked since are dropped on read.
func (s *Service) DailyPicks(ctx context.Context, requester *db.User) ([]db.User, error) {
	if !requester.Verified() {
		return nil, svcErr.ErrVerificationRequired
	}
	date := s.now().Format("2006-01-02")

	pick, err := s.picks.Get(ctx, requester.ID, date)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if pick == nil {
		feed, err := s.candidates(ctx, requester)
		if err != nil {
			return nil, err
		}
		chosen := head(byShared(requester, feed), dailyPickSize)
		p := &db.DailyPick{UserID: requester.ID, Date: date, PickIDs: make([]string, 0, len(chosen))}
		for _, u := range chosen {
			p.PickIDs = append(p.PickIDs, u.ID)
		}
		if pick, err = s.picks.CreateIgnore(ctx, p); err != nil {
			return nil, err
		}
	}

	excluded, err := s.exclusions(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	byID, err := s.users.FindByIDs(ctx, pick.PickIDs)
	if err != nil {
		return nil, err
	}
	out := make([]db.User, 0, len(pick.PickIDs))
	for _, id := range pick.PickIDs {
		u, ok := byID[id]
		if !ok {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		out = append(out, *u)
	}
	return applyDistance(requester, out, nil), nil
}

// Standouts ranks feed candidates by likes received in the last 7 days.
// Ties go to the newer account.
func (s *Service) Standouts(ctx context.Context, requester *db.User) ([]db.User, error) {
	feed, err := s.candidates(ctx, requester)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(feed))
	for i, u := range feed {
		ids[i] = u.ID
	}
	counts, err := s.likes.CountReceivedSince(ctx, ids, s.now().Add(-standoutWindow))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(feed, func(i, j int) bool {
		ci, cj := counts[feed[i].ID], counts[feed[j].ID]
		if ci != cj {
			return ci > cj
		}
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return head(feed, standoutSize), nil
}

// byShared returns a copy sorted by shared interest count, stable on feed order.
func byShared(requester *db.User, users []db.User) []db.User {
	out := append([]db.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		return SharedInterests(requester, &out[i]) > SharedInterests(requester, &out[j])
	})
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
