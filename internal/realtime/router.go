package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oggyb/ember/internal/db"
)

// InboundFunc handles one inbound frame type.
type InboundFunc func(ctx context.Context, c *Client, in Inbound) error

// MatchFinder and CallFinder are the lookups the relay handlers need.
type MatchFinder interface {
	FindByID(ctx context.Context, id string) (*db.Match, error)
}

type CallFinder interface {
	FindByID(ctx context.Context, id string) (*db.Call, error)
}

// BlockChecker reports a block between two users in either direction.
type BlockChecker interface {
	IsBlockedEither(ctx context.Context, a, b string) (bool, error)
}

var (
	errNotParty = errors.New("not a party")
	errBlocked  = errors.New("blocked")
)

// Router dispatches inbound frames by type.
type Router struct {
	handlers map[string]InboundFunc
	log      *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{handlers: make(map[string]InboundFunc), log: log}
}

// Handle registers fn for typ, replacing any previous handler.
func (r *Router) Handle(typ string, fn InboundFunc) {
	r.handlers[typ] = fn
}

func (r *Router) Dispatch(ctx context.Context, c *Client, in Inbound) {
	fn, ok := r.handlers[in.Type]
	if !ok {
		r.log.Debug("unknown realtime message", "type", in.Type, "user_id", c.userID)
		return
	}
	if err := fn(ctx, c, in); err != nil {
		r.log.Debug("realtime handler failed", "type", in.Type, "user_id", c.userID, "err", err)
		c.Reply(NewEvent(TypeError, map[string]any{"detail": err.Error(), "for": in.Type}))
	}
}

// DefaultRouter wires ping, typing and webrtc_signal.
// Relays between blocked users are refused.
func DefaultRouter(bus Bus, matches MatchFinder, calls CallFinder, blocks BlockChecker, log *slog.Logger) *Router {
	r := NewRouter(log)

	unblocked := func(ctx context.Context, a, b string) error {
		blocked, err := blocks.IsBlockedEither(ctx, a, b)
		if err != nil {
			return err
		}
		if blocked {
			return errBlocked
		}
		return nil
	}

	r.Handle(InPing, func(_ context.Context, c *Client, _ Inbound) error {
		c.Reply(NewEvent(TypePong, nil))
		return nil
	})

	r.Handle(InTyping, func(ctx context.Context, c *Client, in Inbound) error {
		m, err := matches.FindByID(ctx, in.MatchID)
		if err != nil {
			return err
		}
		partner := m.Partner(c.userID)
		if partner == "" {
			return errNotParty
		}
		if err := unblocked(ctx, c.userID, partner); err != nil {
			return err
		}
		return bus.Publish(ctx, partner, NewEvent(TypeTyping, map[string]any{
			"match_id":  m.ID,
			"user_id":   c.userID,
			"is_typing": in.IsTyping,
		}))
	})

	r.Handle(InWebRTCSignal, func(ctx context.Context, c *Client, in Inbound) error {
		call, err := calls.FindByID(ctx, in.CallID)
		if err != nil {
			return err
		}
		other := call.Other(c.userID)
		if other == "" {
			return errNotParty
		}
		if err := unblocked(ctx, c.userID, other); err != nil {
			return err
		}
		return bus.Publish(ctx, other, NewEvent(TypeWebRTCSignal, map[string]any{
			"call_id":      call.ID,
			"signal_type":  in.SignalType,
			"data":         in.Data,
			"from_user_id": c.userID,
		}))
	})

	return r
}
