// Package payments wraps the hosted checkout provider.
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Checkout event types the billing service reacts to.
const EventCheckoutCompleted = "checkout.session.completed"

// Session states as reported by the provider.
const (
	StatusOpen     = "open"
	StatusComplete = "complete"
	StatusExpired  = "expired"
	PaymentPaid    = "paid"
	PaymentUnpaid  = "unpaid"
)

var ErrBadSignature = errors.New("invalid webhook signature")

type CheckoutParams struct {
	Name       string
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type Checkout struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	Metadata      map[string]string
}

type WebhookEvent struct {
	Type     string
	Checkout *Checkout
}

// Provider creates and inspects hosted checkout sessions.
type Provider interface {
	CreateCheckout(ctx context.Context, p CheckoutParams) (*Checkout, error)
	GetCheckout(ctx context.Context, id string) (*Checkout, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// Fake keeps sessions in memory. Tests flip them to paid with Pay.
type Fake struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*Checkout
	Created  []CheckoutParams
}

func (f *Fake) CreateCheckout(_ context.Context, p CheckoutParams) (*Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = make(map[string]*Checkout)
	}
	f.seq++
	id := fmt.Sprintf("cs_test_%d", f.seq)
	c := &Checkout{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		Status:        StatusOpen,
		PaymentStatus: PaymentUnpaid,
		Metadata:      p.Metadata,
	}
	f.sessions[id] = c
	f.Created = append(f.Created, p)
	copied := *c
	return &copied, nil
}

func (f *Fake) GetCheckout(_ context.Context, id string) (*Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	copied := *c
	return &copied, nil
}

// ParseWebhook accepts the signature "ok" and a bare session id as payload.
func (f *Fake) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != "ok" {
		return nil, ErrBadSignature
	}
	c, err := f.GetCheckout(context.Background(), string(payload))
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{Type: EventCheckoutCompleted, Checkout: c}, nil
}

// Pay marks a session completed and paid.
func (f *Fake) Pay(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.sessions[id]; ok {
		c.Status, c.PaymentStatus = StatusComplete, PaymentPaid
	}
}
