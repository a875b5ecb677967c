// Package push delivers browser web push notifications.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
)

// ErrGone means the endpoint no longer exists and should be forgotten.
var ErrGone = errors.New("push subscription gone")

type Sender interface {
	Send(ctx context.Context, sub *db.PushSubscription, payload []byte) error
}

// WebPush sends VAPID-signed notifications.
type WebPush struct {
	publicKey  string
	privateKey string
	subscriber string
	client     *http.Client
}

func NewWebPush(cfg *config.Config) *WebPush {
	return &WebPush{
		publicKey:  cfg.Push.VAPIDPublicKey,
		privateKey: cfg.Push.VAPIDPrivateKey,
		subscriber: cfg.Push.Subscriber,
		client:     &http.Client{Timeout: cfg.Push.Timeout},
	}
}

// Enabled reports whether VAPID keys are configured.
func (w *WebPush) Enabled() bool {
	return w.publicKey != "" && w.privateKey != ""
}

func (w *WebPush) Send(ctx context.Context, sub *db.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.subscriber,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
