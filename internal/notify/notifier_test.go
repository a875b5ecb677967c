package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/logger"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/push"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/testutil"
)

type recordingBus struct {
	mu   sync.Mutex
	sent map[string][]realtime.Event
}

func (b *recordingBus) Publish(_ context.Context, userID string, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = map[string][]realtime.Event{}
	}
	b.sent[userID] = append(b.sent[userID], ev)
	return nil
}

type fakePusher struct {
	results map[string]error
	calls   []string
}

func (p *fakePusher) Send(_ context.Context, sub *db.PushSubscription, _ []byte) error {
	p.calls = append(p.calls, sub.Endpoint)
	return p.results[sub.Endpoint]
}

func TestNotify_FansOut(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	subs := repository.NewPushRepository(gdb)
	store := repository.NewNotificationRepository(gdb)

	require.NoError(t, subs.Upsert(ctx, &db.PushSubscription{UserID: "bob", Endpoint: "https://push/live", P256dh: "k", Auth: "a"}))
	require.NoError(t, subs.Upsert(ctx, &db.PushSubscription{UserID: "bob", Endpoint: "https://push/gone", P256dh: "k", Auth: "a"}))
	require.NoError(t, subs.Upsert(ctx, &db.PushSubscription{UserID: "bob", Endpoint: "https://push/flaky", P256dh: "k", Auth: "a"}))

	bus := &recordingBus{}
	pusher := &fakePusher{results: map[string]error{
		"https://push/gone":  push.ErrGone,
		"https://push/flaky": errors.New("503"),
	}}
	rec := &events.Recorder{}
	n := notify.New(store, subs, bus, pusher, rec, time.Second, logger.Discard())

	note, err := n.Notify(ctx, "bob", notify.TypeNewLike, "Someone likes you", "Open the app", map[string]any{"from": "alice"})
	require.NoError(t, err)

	stored, err := store.ListForUser(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, note.ID, stored[0].ID)
	assert.Equal(t, "alice", stored[0].Data["from"])

	require.Len(t, bus.sent["bob"], 1)
	assert.Equal(t, realtime.TypeNotification, bus.sent["bob"][0].Type())

	assert.Len(t, pusher.calls, 3)
	left, _ := subs.ListForUser(ctx, "bob")
	var endpoints []string
	for _, s := range left {
		endpoints = append(endpoints, s.Endpoint)
	}
	assert.ElementsMatch(t, []string{"https://push/live", "https://push/flaky"}, endpoints, "gone endpoint is deleted")

	require.Len(t, rec.Events, 1)
	assert.Equal(t, events.NotificationCreated, rec.Events[0].Key)
}

func TestNotify_WithoutPush(t *testing.T) {
	gdb := testutil.DB(t)
	bus := &recordingBus{}
	n := notify.New(repository.NewNotificationRepository(gdb), nil, bus, nil, events.NewNoop(), time.Second, logger.Discard())

	_, err := n.Notify(context.Background(), "bob", notify.TypeNewMatch, "It's a match", "", nil)
	require.NoError(t, err)
	assert.Len(t, bus.sent["bob"], 1)
}
