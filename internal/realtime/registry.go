package realtime

import (
	"log/slog"
	"sync"

	"github.com/oggyb/ember/internal/metrics"
)

// Registry maps a user id to exactly one live connection on this instance.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register stores c as the user's connection. The last connect wins; a
// replaced connection is left open and simply stops receiving.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	_, replaced := r.clients[c.userID]
	r.clients[c.userID] = c
	r.mu.Unlock()

	if !replaced {
		metrics.RealtimeConnections.Inc()
	}
	r.log.Debug("realtime client registered", "user_id", c.userID, "replaced", replaced)
}

// Unregister removes c only if it is still the registered connection.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[c.userID]; !ok || cur != c {
		return false
	}
	delete(r.clients, c.userID)
	metrics.RealtimeConnections.Dec()
	r.log.Debug("realtime client unregistered", "user_id", c.userID)
	return true
}

// Send queues data for the user. Fire-and-forget: returns false when the
// user is offline or the connection's buffer is full.
func (r *Registry) Send(userID string, data []byte) bool {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return c.enqueue(data)
}

func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
