package billing

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/payments"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/utils/ids"
)

var errTransactionNotFound = svcErr.NewNotFoundError("Transaction")

// Service sells premium plans and add-ons through hosted checkout.
type Service struct {
	appCtx       *app.AppContext
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	provider     payments.Provider
	now          func() time.Time
}

type Option func(*Service)

func WithProvider(p payments.Provider) Option {
	return func(s *Service) { s.provider = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewBillingService creates the billing service backed by Stripe unless
// another provider is given.
func NewBillingService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:       appCtx,
		users:        repository.NewUserRepository(appCtx.DB),
		transactions: repository.NewTransactionRepository(appCtx.DB),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.provider == nil {
		s.provider = payments.NewStripe(appCtx.Config.Stripe.SecretKey, appCtx.Config.Stripe.WebhookSecret)
	}
	return s
}

type Catalog struct {
	Plans    []Package `json:"plans"`
	Addons   []Package `json:"addons"`
	Currency string    `json:"currency"`
}

func (s *Service) Catalog() Catalog {
	return Catalog{Plans: plans, Addons: addons, Currency: s.appCtx.Config.Stripe.Currency}
}

type CheckoutRequest struct {
	PackageID string `json:"package_id" binding:"required"`
	OriginURL string `json:"origin_url" binding:"required"`
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// Checkout opens a hosted checkout session for a package.
//
// Behavior:
//   - The price comes from the server-side catalog.
//   - origin_url must be an absolute http(s) URL; success and cancel pages hang off it.
//   - A transaction row is recorded before the URL is returned.
func (s *Service) Checkout(ctx context.Context, user *db.User, req CheckoutRequest) (*CheckoutResult, error) {
	pkg, ok := findPackage(req.PackageID)
	if !ok {
		return nil, svcErr.InvalidArgument("Invalid package")
	}
	origin, err := url.Parse(strings.TrimRight(req.OriginURL, "/"))
	if err != nil || (origin.Scheme != "http" && origin.Scheme != "https") || origin.Host == "" {
		return nil, svcErr.NewValidationError("origin_url", "must be an absolute http(s) URL")
	}
	base := origin.Scheme + "://" + origin.Host

	currency := s.appCtx.Config.Stripe.Currency
	checkout, err := s.provider.CreateCheckout(ctx, payments.CheckoutParams{
		Name:       pkg.Name,
		Amount:     pkg.Amount,
		Currency:   currency,
		SuccessURL: base + "/premium/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/premium",
		Metadata:   map[string]string{"user_id": user.ID, "package_id": pkg.ID},
	})
	if err != nil {
		s.appCtx.Logger.Error("checkout create failed", "user_id", user.ID, "package_id", pkg.ID, "err", err)
		return nil, svcErr.ErrServiceUnavailable.WithMessage("Payment provider unavailable")
	}

	tx := &db.Transaction{
		ID:            ids.New("txn"),
		SessionID:     checkout.ID,
		UserID:        user.ID,
		PackageID:     pkg.ID,
		Amount:        pkg.Amount,
		Currency:      currency,
		Status:        checkout.Status,
		PaymentStatus: checkout.PaymentStatus,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return &CheckoutResult{URL: checkout.URL, SessionID: checkout.ID}, nil
}

type PaymentStatus struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PackageID     string `json:"package_id"`
	Amount        int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	Fulfilled     bool   `json:"fulfilled"`
}

// Status polls the provider for the caller's session and fulfils once paid.
func (s *Service) Status(ctx context.Context, userID, sessionID string) (*PaymentStatus, error) {
	tx, err := s.transactions.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errTransactionNotFound
	} else if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, errTransactionNotFound
	}

	checkout, err := s.provider.GetCheckout(ctx, sessionID)
	if err != nil {
		s.appCtx.Logger.Error("checkout lookup failed", "session_id", sessionID, "err", err)
		return nil, svcErr.ErrServiceUnavailable.WithMessage("Payment provider unavailable")
	}
	if err := s.record(ctx, tx, checkout); err != nil {
		return nil, err
	}
	return &PaymentStatus{
		SessionID:     tx.SessionID,
		Status:        tx.Status,
		PaymentStatus: tx.PaymentStatus,
		PackageID:     tx.PackageID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Fulfilled:     tx.Fulfilled,
	}, nil
}

// Webhook handles signed provider callbacks. Unknown sessions and other
// event types are acknowledged and ignored.
func (s *Service) Webhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if errors.Is(err, payments.ErrBadSignature) {
		return svcErr.InvalidArgument("Invalid signature")
	} else if err != nil {
		return svcErr.InvalidArgument("Invalid webhook payload")
	}
	if ev.Type != payments.EventCheckoutCompleted || ev.Checkout == nil {
		return nil
	}

	tx, err := s.transactions.FindBySessionID(ctx, ev.Checkout.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.appCtx.Logger.Warn("webhook for unknown session", "session_id", ev.Checkout.ID)
		return nil
	} else if err != nil {
		return err
	}
	return s.record(ctx, tx, ev.Checkout)
}

// record stores the provider state on tx and fulfils paid sessions.
func (s *Service) record(ctx context.Context, tx *db.Transaction, checkout *payments.Checkout) error {
	if checkout.Status != tx.Status || checkout.PaymentStatus != tx.PaymentStatus {
		if err := s.transactions.UpdateStatus(ctx, tx.SessionID, checkout.Status, checkout.PaymentStatus); err != nil {
			return err
		}
		tx.Status, tx.PaymentStatus = checkout.Status, checkout.PaymentStatus
	}
	if tx.PaymentStatus != payments.PaymentPaid || tx.Fulfilled {
		return nil
	}
	if err := s.fulfil(ctx, tx); err != nil {
		return err
	}
	tx.Fulfilled = true
	return nil
}

// fulfil grants the package at most once per session.
//
// Behavior:
//   - Plans extend from the later of now and the current expiry.
//   - Add-ons credit extra super likes or roses.
//   - A failed grant releases the claim so a retry can fulfil it.
func (s *Service) fulfil(ctx context.Context, tx *db.Transaction) error {
	claimed, err := s.transactions.ClaimFulfilment(ctx, tx.SessionID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	pkg, ok := findPackage(tx.PackageID)
	if !ok {
		s.appCtx.Logger.Error("transaction has unknown package", "session_id", tx.SessionID, "package_id", tx.PackageID)
		return nil
	}
	if err := s.grant(ctx, tx.UserID, pkg); err != nil {
		if rerr := s.transactions.ReleaseFulfilment(context.WithoutCancel(ctx), tx.SessionID); rerr != nil {
			s.appCtx.Logger.Error("release fulfilment failed", "session_id", tx.SessionID, "err", rerr)
		}
		return err
	}

	s.appCtx.Logger.Info("payment fulfilled", "session_id", tx.SessionID, "user_id", tx.UserID, "package_id", pkg.ID)
	title, body := "Welcome to Premium!", pkg.Name+" is now active"
	if pkg.Kind == kindAddon {
		title, body = "Purchase complete", pkg.Name+" added to your account"
	}
	if _, err := s.appCtx.Notifier.Notify(ctx, tx.UserID, notify.TypePremium, title, body, map[string]any{
		"package_id": pkg.ID,
	}); err != nil {
		s.appCtx.Logger.Error("premium notification failed", "user_id", tx.UserID, "err", err)
	}
	if err := s.appCtx.Events.Publish(ctx, events.PaymentFulfilled, map[string]any{
		"session_id": tx.SessionID,
		"user_id":    tx.UserID,
		"package_id": pkg.ID,
		"amount":     tx.Amount,
		"currency":   tx.Currency,
	}); err != nil {
		s.appCtx.Logger.Warn("payment.fulfilled publish failed", "session_id", tx.SessionID, "err", err)
	}
	return nil
}

func (s *Service) grant(ctx context.Context, userID string, pkg Package) error {
	if pkg.Kind == kindAddon {
		return s.users.AddExtras(ctx, userID, pkg.SuperLikes, pkg.Roses)
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	from := s.now()
	if u.PremiumActive(from) && u.PremiumExpiresAt != nil {
		from = *u.PremiumExpiresAt
	}
	return s.users.GrantPremium(ctx, userID, pkg.ID, from.Add(pkg.Duration))
}
