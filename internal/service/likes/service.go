package likes

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/metrics"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/utils/ids"
	"github.com/oggyb/ember/internal/utils/pagination"
)

// receivedPageSize caps one page of received likes.
const receivedPageSize = 50

// Service implements likes, match detection and the received-likes views.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	likes   *repository.LikeRepository
	matches *repository.MatchRepository
	blocks  *repository.BlockRepository
	now     func() time.Time
}

// NewLikesService creates a new likes service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via user, like, match and block repositories)
//   - RedisCache for the received-like counter
//   - Bus and Notifier for like and match fan-out
func NewLikesService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		likes:   repository.NewLikeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type LikeRequest struct {
	LikedUserID  string  `json:"liked_user_id" binding:"required"`
	LikeType     string  `json:"like_type"`
	LikedSection *string `json:"liked_section"`
	Comment      *string `json:"comment"`
}

type LikeResult struct {
	Like  *db.Like  `json:"like"`
	Match *db.Match `json:"match"`
}

// quota describes the counter a like type draws from.
type quota struct {
	counter repository.Counter
	max     int
	label   string
}

func (s *Service) quotaFor(likeType string) quota {
	l := s.appCtx.Config.Limits
	switch likeType {
	case db.LikeSuperLike:
		return quota{repository.SuperLikeCounter, l.DailySuperLikes, "super like"}
	case db.LikeRose:
		return quota{repository.RoseCounter, l.DailyRoses, "rose"}
	default:
		return quota{repository.SwipeCounter, l.DailySwipes, "swipe"}
	}
}

// unlimited reports whether premium lifts the quota for this like type.
// Any active plan lifts swipes; the yearly plan also lifts super likes.
func unlimited(u *db.User, likeType string, now time.Time) bool {
	if !u.PremiumActive(now) {
		return false
	}
	switch likeType {
	case db.LikeRegular:
		return true
	case db.LikeSuperLike:
		return u.PremiumPlan != nil && *u.PremiumPlan == db.PlanYearly
	}
	return false
}

// consume spends one unit for likeType and returns the matching refund.
//
// Behavior:
//   - Daily counter first (conditional UPDATE with a ceiling).
//   - Then a purchased extra, for super likes and roses.
//   - Neither available: 429 with the counter's name.
func (s *Service) consume(ctx context.Context, u *db.User, likeType string) (func(), error) {
	if unlimited(u, likeType, s.now()) {
		return func() {}, nil
	}
	q := s.quotaFor(likeType)

	ok, err := s.users.ConsumeDaily(ctx, u.ID, q.counter, q.max, s.now())
	if err != nil {
		return nil, err
	}
	if ok {
		return func() {
			if err := s.users.Refund(context.WithoutCancel(ctx), u.ID, q.counter); err != nil {
				s.appCtx.Logger.Error("quota refund failed", "user_id", u.ID, "kind", q.counter.Kind, "err", err)
			}
		}, nil
	}

	ok, err = s.users.ConsumeExtra(ctx, u.ID, q.counter)
	if err != nil {
		return nil, err
	}
	if ok {
		return func() {
			if err := s.users.RefundExtra(context.WithoutCancel(ctx), u.ID, q.counter); err != nil {
				s.appCtx.Logger.Error("extra refund failed", "user_id", u.ID, "kind", q.counter.Kind, "err", err)
			}
		}, nil
	}

	metrics.QuotaRejectionsTotal.WithLabelValues(q.counter.Kind).Inc()
	return nil, svcErr.NewQuotaError(q.label)
}

// Like records a directed like and materializes the match when it is mutual.
//
// Behavior:
//   - Requester must be verified; target must exist, differ from requester and
//     not be blocked in either direction.
//   - Quota is consumed before the insert and refunded when the insert loses a
//     uniqueness race.
//   - Pushes new_like to the target and always writes a notification.
//   - Looks up the reverse edge after the insert has committed. The request that
//     creates the Match row pushes new_match and notifies both users.
//
// Example:
//
//	res, err := svc.Like(ctx, me, LikeRequest{LikedUserID: "user_b", LikeType: "super_like"})
func (s *Service) Like(ctx context.Context, requester *db.User, req LikeRequest) (*LikeResult, error) {
	s.appCtx.Logger.Debug("Like called", "liker", requester.ID, "liked", req.LikedUserID, "type", req.LikeType)

	if !requester.Verified() {
		return nil, svcErr.ErrVerificationRequired
	}
	req.LikeType = normalizeType(req.LikeType)
	if req.LikeType == "" {
		req.LikeType = db.LikeRegular
	}
	switch req.LikeType {
	case db.LikeRegular, db.LikeSuperLike, db.LikeRose:
	default:
		return nil, svcErr.NewValidationError("like_type", "must be regular, super_like or rose")
	}
	if req.LikedUserID == requester.ID {
		return nil, svcErr.InvalidArgument("Cannot like yourself")
	}

	target, err := s.users.FindByID(ctx, req.LikedUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NewNotFoundError("User")
	} else if err != nil {
		return nil, err
	}

	blocked, err := s.blocks.IsBlockedEither(ctx, requester.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, svcErr.ErrBlocked
	}

	already, err := s.likes.HasLiked(ctx, requester.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, svcErr.NewConflictError("Already liked this user")
	}

	refund, err := s.consume(ctx, requester, req.LikeType)
	if err != nil {
		return nil, err
	}

	like := &db.Like{
		ID:           ids.New("like"),
		LikerID:      requester.ID,
		LikedUserID:  target.ID,
		LikeType:     req.LikeType,
		LikedSection: req.LikedSection,
		Comment:      req.Comment,
		CreatedAt:    s.now(),
	}
	created, err := s.likes.Create(ctx, like)
	if err != nil {
		refund()
		return nil, err
	}
	if !created {
		refund()
		return nil, svcErr.NewConflictError("Already liked this user")
	}

	metrics.LikesTotal.WithLabelValues(like.LikeType).Inc()
	_ = s.appCtx.RedisCache.InvalidateLikeCount(ctx, target.ID)
	s.announceLike(ctx, requester, target, like)

	match, err := s.reconcileMatch(ctx, requester, target)
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Debug("Like result", "like_id", like.ID, "matched", match != nil)
	return &LikeResult{Like: like, Match: match}, nil
}

func (s *Service) announceLike(ctx context.Context, liker, target *db.User, like *db.Like) {
	if err := s.appCtx.Bus.Publish(ctx, target.ID, realtime.NewEvent(realtime.TypeNewLike, map[string]any{
		"like":      like,
		"from_user": liker,
	})); err != nil {
		s.appCtx.Logger.Warn("new_like publish failed", "user_id", target.ID, "err", err)
	}

	body := "Someone liked your profile!"
	switch like.LikeType {
	case db.LikeSuperLike:
		body = "Someone super liked you!"
	case db.LikeRose:
		body = "Someone sent you a rose!"
	}
	if _, err := s.appCtx.Notifier.Notify(ctx, target.ID, notify.TypeNewLike, "New like", body, map[string]any{
		"like_id":   like.ID,
		"like_type": like.LikeType,
		"liker_id":  liker.ID,
	}); err != nil {
		s.appCtx.Logger.Error("like notification failed", "user_id", target.ID, "err", err)
	}
}

// reconcileMatch creates the match when the reverse like exists.
// Only the request that inserted the row announces it.
func (s *Service) reconcileMatch(ctx context.Context, requester, target *db.User) (*db.Match, error) {
	mutual, err := s.likes.HasLiked(ctx, target.ID, requester.ID)
	if err != nil || !mutual {
		return nil, err
	}

	match, created, err := s.matches.CreateIgnore(ctx, requester.ID, target.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !created {
		return match, nil
	}

	metrics.MatchesTotal.Inc()
	// the liker's received count drops the now-matched like
	_ = s.appCtx.RedisCache.InvalidateLikeCount(ctx, requester.ID)

	for _, pair := range [][2]*db.User{{requester, target}, {target, requester}} {
		me, other := pair[0], pair[1]
		view := *match
		view.OtherUser = other
		if err := s.appCtx.Bus.Publish(ctx, me.ID, realtime.NewEvent(realtime.TypeNewMatch, map[string]any{
			"match": &view,
		})); err != nil {
			s.appCtx.Logger.Warn("new_match publish failed", "user_id", me.ID, "err", err)
		}
		if _, err := s.appCtx.Notifier.Notify(ctx, me.ID, notify.TypeNewMatch, "It's a match!",
			"You and "+other.Name+" liked each other", map[string]any{
				"match_id":      match.ID,
				"other_user_id": other.ID,
			}); err != nil {
			s.appCtx.Logger.Error("match notification failed", "user_id", me.ID, "err", err)
		}
	}

	if err := s.appCtx.Events.Publish(ctx, events.MatchCreated, match); err != nil {
		s.appCtx.Logger.Warn("publish match event failed", "match_id", match.ID, "err", err)
	}
	return match, nil
}

// Received is one page of likes addressed to the requester.
type Received struct {
	Likes           []db.Like `json:"likes"`
	Count           int64     `json:"count"`
	PremiumRequired bool      `json:"premium_required"`
	NextPageToken   *string   `json:"next_page_token,omitempty"`
}

// ListReceived returns likes received by the requester, newest first.
//
// Behavior:
//   - Excludes likers the requester blocked and pairs that already matched.
//   - Without active premium the liker profiles are withheld and
//     premium_required is set; the count is always returned.
//   - Supports cursor-based pagination with pageToken.
//
// Example:
//
//	page, err := svc.ListReceived(ctx, me, nil)
func (s *Service) ListReceived(ctx context.Context, requester *db.User, pageToken *string) (*Received, error) {
	s.appCtx.Logger.Debug("ListReceived called", "recipient", requester.ID)

	list, next, err := s.likes.ListReceived(ctx, requester.ID, "", pageToken, receivedPageSize)
	if err != nil {
		return nil, pageError(err)
	}
	count, err := s.Count(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	out := &Received{Likes: list, Count: count, NextPageToken: next}
	if !requester.PremiumActive(s.now()) {
		out.PremiumRequired = true
	} else if err := s.attachLikers(ctx, out.Likes); err != nil {
		return nil, err
	}
	if out.Likes == nil {
		out.Likes = []db.Like{}
	}
	return out, nil
}

// ListRoses returns received roses with sender profiles. Roses are never gated.
func (s *Service) ListRoses(ctx context.Context, requester *db.User, pageToken *string) (*Received, error) {
	list, next, err := s.likes.ListReceived(ctx, requester.ID, db.LikeRose, pageToken, receivedPageSize)
	if err != nil {
		return nil, pageError(err)
	}
	if err := s.attachLikers(ctx, list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []db.Like{}
	}
	return &Received{Likes: list, Count: int64(len(list)), NextPageToken: next}, nil
}

// pageError turns a malformed page token into a 400 and passes anything else through.
func pageError(err error) error {
	if errors.Is(err, pagination.ErrInvalidToken) {
		return svcErr.InvalidArgument("invalid page token")
	}
	return err
}

func (s *Service) attachLikers(ctx context.Context, list []db.Like) error {
	likerIDs := make([]string, len(list))
	for i, l := range list {
		likerIDs[i] = l.LikerID
	}
	byID, err := s.users.FindByIDs(ctx, likerIDs)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Liker = byID[list[i].LikerID]
	}
	return nil
}

// Count returns how many users liked the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:received:count:userID).
//  2. On a miss or a Redis error, falls back to DB via LikeRepository.CountReceived.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) Count(ctx context.Context, recipientID string) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, recipientID); err == nil && ok {
		return n, nil
	}

	count, err := s.likes.CountReceived(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetLikeCount(ctx, recipientID, count)
	return count, nil
}

// Reject deletes a like addressed to the requester.
func (s *Service) Reject(ctx context.Context, requesterID, likeID string) error {
	deleted, err := s.likes.DeleteReceived(ctx, likeID, requesterID)
	if err != nil {
		return err
	}
	if !deleted {
		return svcErr.NewNotFoundError("Like")
	}
	_ = s.appCtx.RedisCache.InvalidateLikeCount(ctx, requesterID)
	return nil
}

type CounterView struct {
	Remaining int  `json:"remaining"`
	Max       int  `json:"max"`
	Unlimited bool `json:"unlimited"`
	Extra     int  `json:"extra,omitempty"`
}

type Limits struct {
	Swipes     CounterView `json:"swipes"`
	SuperLikes CounterView `json:"super_likes"`
	Roses      CounterView `json:"roses"`
	IsPremium  bool        `json:"is_premium"`
}

// Limits reports what is left on each daily counter. Reads only; the lazy
// reset is applied in the computation, not written.
func (s *Service) Limits(ctx context.Context, userID string) (*Limits, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	view := func(likeType string, extra int) CounterView {
		q := s.quotaFor(likeType)
		v := CounterView{
			Remaining: repository.Remaining(u, q.counter, q.max, now),
			Max:       q.max,
			Extra:     extra,
		}
		if unlimited(u, likeType, now) {
			v.Unlimited = true
			v.Remaining = q.max
		}
		return v
	}
	return &Limits{
		Swipes:     view(db.LikeRegular, 0),
		SuperLikes: view(db.LikeSuperLike, u.ExtraSuperLikes),
		Roses:      view(db.LikeRose, u.ExtraRoses),
		IsPremium:  u.PremiumActive(now),
	}, nil
}

// normalizeType accepts the hyphenated spelling some clients send.
func normalizeType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "-", "_")
}
