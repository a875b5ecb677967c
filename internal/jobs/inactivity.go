// Package jobs runs scheduled maintenance over the match graph.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/repository"
)

const jobMatchSweep = "match_inactivity"

// MatchSweeper warns and then expires matches where nobody sent a first message.
type MatchSweeper struct {
	appCtx      *app.AppContext
	matches     *repository.MatchRepository
	users       *repository.UserRepository
	warnAfter   time.Duration
	expireAfter time.Duration
	now         func() time.Time
}

type Option func(*MatchSweeper)

func WithClock(now func() time.Time) Option {
	return func(s *MatchSweeper) { s.now = now }
}

func NewMatchSweeper(appCtx *app.AppContext, opts ...Option) *MatchSweeper {
	s := &MatchSweeper{
		appCtx:      appCtx,
		matches:     repository.NewMatchRepository(appCtx.DB),
		users:       repository.NewUserRepository(appCtx.DB),
		warnAfter:   appCtx.Config.Jobs.MatchWarnAfter,
		expireAfter: appCtx.Config.Jobs.MatchExpireAfter,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SweepResult counts what one pass changed.
type SweepResult struct {
	Warned  int
	Expired int
}

// Sweep runs one pass.
//
// Behavior:
//   - Silent matches older than the expiry are deleted and both users notified.
//   - Silent matches older than the warning age are warned once.
//   - A message arriving mid-sweep wins; the conditional updates skip that match.
func (s *MatchSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()
	silent, err := s.matches.ListSilentSince(ctx, now.Add(-s.warnAfter))
	if err != nil {
		return res, err
	}
	expireCutoff := now.Add(-s.expireAfter)

	for i := range silent {
		m := &silent[i]
		if !m.MatchedAt.After(expireCutoff) {
			deleted, err := s.matches.DeleteIfSilent(ctx, m.ID)
			if err != nil {
				return res, err
			}
			if deleted {
				res.Expired++
				s.notifyPair(ctx, m, notify.TypeMatchExpired, "Match expired",
					func(name string) string { return fmt.Sprintf("Your match with %s expired", name) })
			}
			continue
		}
		if m.WarningSent {
			continue
		}
		warned, err := s.matches.MarkWarned(ctx, m.ID, now)
		if err != nil {
			return res, err
		}
		if warned {
			res.Warned++
			left := m.MatchedAt.Add(s.expireAfter).Sub(now).Round(time.Hour)
			s.notifyPair(ctx, m, notify.TypeMatchWarning, "Match expiring soon",
				func(name string) string {
					return fmt.Sprintf("Say hi to %s! Your match expires in %s", name, formatLeft(left))
				})
		}
	}
	return res, nil
}

func (s *MatchSweeper) notifyPair(ctx context.Context, m *db.Match, typ, title string, body func(name string) string) {
	users, err := s.users.FindByIDs(ctx, []string{m.User1ID, m.User2ID})
	if err != nil {
		s.appCtx.Logger.Error("sweep user lookup failed", "match_id", m.ID, "err", err)
		return
	}
	for _, id := range []string{m.User1ID, m.User2ID} {
		name := "your match"
		if other, ok := users[m.Partner(id)]; ok {
			name = other.Name
		}
		if _, err := s.appCtx.Notifier.Notify(ctx, id, typ, title, body(name), map[string]any{
			"match_id": m.ID,
		}); err != nil {
			s.appCtx.Logger.Error("sweep notification failed", "match_id", m.ID, "user_id", id, "err", err)
		}
	}
}

func formatLeft(d time.Duration) string {
	h := int(d.Hours())
	if h <= 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
