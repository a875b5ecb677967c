// Package sms delivers phone verification codes.
package sms

import (
	"context"
	"log/slog"
	"sync"
)

type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// LogSender writes messages to the log instead of a carrier. Development only.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, phone, text string) error {
	s.Log.Info("sms", "phone", mask(phone), "text", text)
	return nil
}

// Recorder keeps sent messages in memory for tests.
type Recorder struct {
	mu   sync.Mutex
	Sent map[string]string
}

func (r *Recorder) Send(_ context.Context, phone, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Sent == nil {
		r.Sent = make(map[string]string)
	}
	r.Sent[phone] = text
	return nil
}

// Last returns the last text sent to phone.
func (r *Recorder) Last(phone string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Sent[phone]
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
