package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/testutil"
)

func TestTransactionClaimFulfilment_Once(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTransactionRepository(testutil.DB(t))
	require.NoError(t, repo.Create(ctx, &db.Transaction{
		ID: "txn_1", SessionID: "cs_1", UserID: "u", PackageID: "monthly",
		Amount: 1999, Currency: "usd", Status: "open", PaymentStatus: "unpaid",
	}))

	ok, err := repo.ClaimFulfilment(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ClaimFulfilment(ctx, "cs_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseFulfilment(ctx, "cs_1"))
	ok, _ = repo.ClaimFulfilment(ctx, "cs_1")
	assert.True(t, ok)
}

func TestDailyPickCreateIgnore_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDailyPickRepository(testutil.DB(t))

	first, err := repo.CreateIgnore(ctx, &db.DailyPick{UserID: "me", Date: "2026-01-01", PickIDs: []string{"a", "b"}})
	require.NoError(t, err)
	second, err := repo.CreateIgnore(ctx, &db.DailyPick{UserID: "me", Date: "2026-01-01", PickIDs: []string{"c"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first.PickIDs)
	assert.Equal(t, first.PickIDs, second.PickIDs)

	_, err = repo.Get(ctx, "me", "2026-01-02")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessionFindValid(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(testutil.DB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &db.UserSession{Token: "live", UserID: "u", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &db.UserSession{Token: "dead", UserID: "u", ExpiresAt: now.Add(-time.Hour)}))

	s, err := repo.FindValid(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, "u", s.UserID)

	_, err = repo.FindValid(ctx, "dead", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCallTransition(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCallRepository(testutil.DB(t))
	require.NoError(t, repo.Create(ctx, &db.Call{
		ID: "call_1", MatchID: "m", CallerID: "a", CalleeID: "b",
		CallType: "video", Status: db.CallRinging, StartedAt: time.Now().UTC(),
	}))

	ok, err := repo.Transition(ctx, "call_1", []string{db.CallRinging}, map[string]any{"status": db.CallActive})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = repo.Transition(ctx, "call_1", []string{db.CallRinging}, map[string]any{"status": db.CallRejected})
	assert.False(t, ok, "cannot reject an active call")
}

func TestIcebreakerSaveIfUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewIcebreakerRepository(testutil.DB(t))
	require.NoError(t, repo.Create(ctx, &db.IcebreakerSession{
		ID: "ice_1", MatchID: "m", GameType: "quick_questions", StartedBy: "a",
		Questions: []any{"q1", "q2"}, Answers: map[int]map[string]string{}, Status: "active",
	}))

	s, err := repo.FindByID(ctx, "ice_1")
	require.NoError(t, err)
	prev := s.UpdatedAt
	stale := *s

	s.Answers = map[int]map[string]string{0: {"a": "pizza"}}
	time.Sleep(2 * time.Millisecond)
	ok, err := repo.SaveIfUnchanged(ctx, s, prev)
	require.NoError(t, err)
	assert.True(t, ok)

	stale.Answers = map[int]map[string]string{0: {"b": "sushi"}}
	ok, err = repo.SaveIfUnchanged(ctx, &stale, prev)
	require.NoError(t, err)
	assert.False(t, ok, "stale writer loses")

	got, _ := repo.FindByID(ctx, "ice_1")
	assert.Equal(t, "pizza", got.Answers[0]["a"])
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNotificationRepository(testutil.DB(t))
	var store repository.NotificationStore = repo

	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, store.Create(ctx, &db.Notification{
			ID: id, UserID: "me", Type: "new_like", Title: "t",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := store.ListForUser(ctx, "me", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n3", list[0].ID)

	ok, err := store.MarkRead(ctx, "someone", "n1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = store.MarkRead(ctx, "me", "n1")
	assert.True(t, ok)

	n, _ := store.MarkAllRead(ctx, "me")
	assert.Equal(t, int64(2), n)
	unread, _ := store.CountUnread(ctx, "me")
	assert.Zero(t, unread)
}

func TestPushUpsert_MovesEndpoint(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPushRepository(testutil.DB(t))

	require.NoError(t, repo.Upsert(ctx, &db.PushSubscription{UserID: "a", Endpoint: "https://push/1", P256dh: "k", Auth: "s"}))
	require.NoError(t, repo.Upsert(ctx, &db.PushSubscription{UserID: "b", Endpoint: "https://push/1", P256dh: "k2", Auth: "s2"}))

	subs, _ := repo.ListForUser(ctx, "a")
	assert.Empty(t, subs)
	subs, _ = repo.ListForUser(ctx, "b")
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256dh)

	require.NoError(t, repo.DeleteByEndpoint(ctx, "https://push/1"))
	subs, _ = repo.ListForUser(ctx, "b")
	assert.Empty(t, subs)
}
