package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/ember/internal/metrics"
)

// ChannelPrefix namespaces per-user pub/sub channels.
const ChannelPrefix = "ember:rt:"

// Bus delivers events to a user's live connection, wherever it is.
type Bus interface {
	Publish(ctx context.Context, userID string, ev Event) error
}

// Channel returns the pub/sub channel for a user.
func Channel(userID string) string { return ChannelPrefix + userID }

// LocalBus delivers straight into the in-process registry.
type LocalBus struct {
	registry *Registry
}

func NewLocalBus(registry *Registry) *LocalBus {
	return &LocalBus{registry: registry}
}

func (b *LocalBus) Publish(_ context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if !b.registry.Send(userID, data) {
		metrics.RealtimeDropped.Inc()
	}
	return nil
}

// RedisBus fans events out through Redis pub/sub so any instance holding the
// user's socket can deliver it.
type RedisBus struct {
	client   *redis.Client
	registry *Registry
	log      *slog.Logger

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewRedisBus(client *redis.Client, registry *Registry, log *slog.Logger) *RedisBus {
	return &RedisBus{client: client, registry: registry, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel(userID), data).Err()
}

// Start subscribes and forwards messages to the local registry until ctx is
// done or Close is called. It returns once the subscription is confirmed.
func (b *RedisBus) Start(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, ChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID := strings.TrimPrefix(msg.Channel, ChannelPrefix)
				if !b.registry.Send(userID, []byte(msg.Payload)) && b.registry.Online(userID) {
					metrics.RealtimeDropped.Inc()
				}
			}
		}
	}()

	b.log.Info("realtime redis bus subscribed", "pattern", ChannelPrefix+"*")
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
