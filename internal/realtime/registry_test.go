package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/logger"
)

func testClient(userID string) *Client {
	return newClient(userID, nil, nil, logger.Discard())
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestRegistry_LastConnectWins(t *testing.T) {
	reg := NewRegistry(logger.Discard())
	first := testClient("user_a")
	second := testClient("user_a")

	reg.Register(first)
	reg.Register(second)
	assert.Equal(t, 1, reg.Count())

	assert.True(t, reg.Send("user_a", []byte(`{"type":"pong"}`)))
	assert.Len(t, second.send, 1)
	assert.Len(t, first.send, 0)

	// the replaced connection's disconnect must not evict the new one
	assert.False(t, reg.Unregister(first))
	assert.True(t, reg.Online("user_a"))

	assert.True(t, reg.Unregister(second))
	assert.False(t, reg.Online("user_a"))
}

func TestRegistry_SendOfflineDrops(t *testing.T) {
	reg := NewRegistry(logger.Discard())
	assert.False(t, reg.Send("nobody", []byte("x")))
}

func TestRegistry_SendFullBufferDrops(t *testing.T) {
	reg := NewRegistry(logger.Discard())
	c := testClient("user_a")
	reg.Register(c)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, reg.Send("user_a", []byte("x")))
	}
	assert.False(t, reg.Send("user_a", []byte("x")))
}

func TestRegistry_ClosedClientDrops(t *testing.T) {
	reg := NewRegistry(logger.Discard())
	c := testClient("user_a")
	reg.Register(c)
	c.close()
	assert.False(t, reg.Send("user_a", []byte("x")))
}

func TestLocalBus_Publish(t *testing.T) {
	reg := NewRegistry(logger.Discard())
	c := testClient("user_a")
	reg.Register(c)

	bus := NewLocalBus(reg)
	require.NoError(t, bus.Publish(context.Background(), "user_a", NewEvent(TypeNewLike, map[string]any{"from": "user_b"})))
	require.NoError(t, bus.Publish(context.Background(), "offline", NewEvent(TypeNewLike, nil)))

	ev := recv(t, c)
	assert.Equal(t, TypeNewLike, ev.Type())
	assert.Equal(t, "user_b", ev["from"])
}

func TestRedisBus_DeliversAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	newInstance := func() (*Registry, *RedisBus) {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		reg := NewRegistry(logger.Discard())
		bus := NewRedisBus(client, reg, logger.Discard())
		require.NoError(t, bus.Start(ctx))
		t.Cleanup(func() { bus.Close() })
		return reg, bus
	}

	regA, busA := newInstance()
	regB, _ := newInstance()

	alice := testClient("user_a")
	bob := testClient("user_b")
	regA.Register(alice)
	regB.Register(bob)

	// published on instance A, bob lives on instance B
	require.NoError(t, busA.Publish(ctx, "user_b", NewEvent(TypeNewMatch, map[string]any{"match_id": "match_1"})))

	ev := recv(t, bob)
	assert.Equal(t, TypeNewMatch, ev.Type())
	assert.Equal(t, "match_1", ev["match_id"])
	assert.Len(t, alice.send, 0)
}

func TestNewEvent_TypeWins(t *testing.T) {
	ev := NewEvent(TypeTyping, map[string]any{"type": "spoofed", "is_typing": true})
	assert.Equal(t, TypeTyping, ev.Type())
	assert.Equal(t, true, ev["is_typing"])
}
