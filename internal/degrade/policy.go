// Package degrade wraps calls to optional external dependencies with a
// timeout and an explicit fallback.
package degrade

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/ember/internal/metrics"
)

// Policy describes how one dependency degrades.
type Policy[T any] struct {
	Name    string
	Timeout time.Duration
	// Fallback builds the degraded result from the failure cause.
	Fallback func(ctx context.Context, cause error) (T, error)
	Logger   *slog.Logger
}

// Do runs fn under the policy. The fallback runs when fn fails or times out.
//
// A nil Fallback surfaces the original error.
func (p Policy[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := fn(callCtx)
	if err == nil {
		return out, nil
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.DegradedCallsTotal.WithLabelValues(p.Name, reason).Inc()
	if p.Logger != nil {
		p.Logger.Warn("dependency degraded", "dependency", p.Name, "reason", reason, "err", err)
	}

	if p.Fallback == nil {
		var zero T
		return zero, err
	}
	return p.Fallback(ctx, err)
}
