package billing_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/payments"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/billing"
	"github.com/oggyb/ember/internal/testutil"
)

type fixture struct {
	appCtx   *app.AppContext
	svc      *billing.Service
	provider *payments.Fake
	rec      *events.Recorder
	clock    time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		appCtx:   testutil.App(t),
		provider: &payments.Fake{},
		rec:      &events.Recorder{},
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.appCtx.Events = f.rec
	testutil.Seed(t, f.appCtx.DB, testutil.Discoverable("alice", "female"), testutil.Discoverable("bob", "male"))
	f.svc = billing.NewBillingService(f.appCtx,
		billing.WithProvider(f.provider),
		billing.WithClock(func() time.Time { return f.clock }),
	)
	return f
}

func (f *fixture) user(t *testing.T, id string) *db.User {
	t.Helper()
	u, err := repository.NewUserRepository(f.appCtx.DB).FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) fulfilled() int {
	n := 0
	for _, e := range f.rec.Events {
		if e.Key == events.PaymentFulfilled {
			n++
		}
	}
	return n
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{
		PackageID: db.PlanMonthly,
		OriginURL: "https://ember.test/",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SessionID, "cs_test_"))
	assert.NotEmpty(t, res.URL)

	require.Len(t, f.provider.Created, 1)
	p := f.provider.Created[0]
	assert.EqualValues(t, 2999, p.Amount)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, "https://ember.test/premium/success?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
	assert.Equal(t, "https://ember.test/premium", p.CancelURL)
	assert.Equal(t, map[string]string{"user_id": "alice", "package_id": db.PlanMonthly}, p.Metadata)

	tx, err := repository.NewTransactionRepository(f.appCtx.DB).FindBySessionID(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "alice", tx.UserID)
	assert.Equal(t, payments.PaymentUnpaid, tx.PaymentStatus)
	assert.False(t, tx.Fulfilled)

	_, err = f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{PackageID: "lifetime", OriginURL: "https://ember.test"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)
	_, err = f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{PackageID: db.PlanWeekly, OriginURL: "ember.test"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)
}

func TestStatus_GrantsPremiumOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{PackageID: db.PlanWeekly, OriginURL: "https://ember.test"})
	require.NoError(t, err)

	st, err := f.svc.Status(ctx, "alice", res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, payments.PaymentUnpaid, st.PaymentStatus)
	assert.False(t, st.Fulfilled)
	assert.False(t, f.user(t, "alice").PremiumActive(f.clock))

	f.provider.Pay(res.SessionID)
	st, err = f.svc.Status(ctx, "alice", res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, payments.PaymentPaid, st.PaymentStatus)
	assert.True(t, st.Fulfilled)

	u := f.user(t, "alice")
	assert.True(t, u.PremiumActive(f.clock))
	require.NotNil(t, u.PremiumExpiresAt)
	assert.WithinDuration(t, f.clock.Add(7*24*time.Hour), *u.PremiumExpiresAt, time.Second)

	// Polling again and a late webhook must not extend the plan twice.
	_, err = f.svc.Status(ctx, "alice", res.SessionID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Webhook(ctx, []byte(res.SessionID), "ok"))
	assert.WithinDuration(t, f.clock.Add(7*24*time.Hour), *f.user(t, "alice").PremiumExpiresAt, time.Second)
	assert.Equal(t, 1, f.fulfilled())

	n, err := f.appCtx.Notifier.Store().CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStatus_OtherUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{PackageID: db.PlanWeekly, OriginURL: "https://ember.test"})
	require.NoError(t, err)

	_, err = f.svc.Status(ctx, "bob", res.SessionID)
	assert.Equal(t, http.StatusNotFound, svcErr.Map(err).StatusCode)
	_, err = f.svc.Status(ctx, "alice", "cs_missing")
	assert.Equal(t, http.StatusNotFound, svcErr.Map(err).StatusCode)
}

func TestWebhook_ExtendsActivePlan(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	users := repository.NewUserRepository(f.appCtx.DB)
	require.NoError(t, users.GrantPremium(ctx, "alice", db.PlanWeekly, f.clock.Add(3*24*time.Hour)))

	res, err := f.svc.Checkout(ctx, f.user(t, "alice"), billing.CheckoutRequest{PackageID: db.PlanMonthly, OriginURL: "https://ember.test"})
	require.NoError(t, err)
	f.provider.Pay(res.SessionID)
	require.NoError(t, f.svc.Webhook(ctx, []byte(res.SessionID), "ok"))

	u := f.user(t, "alice")
	require.NotNil(t, u.PremiumPlan)
	assert.Equal(t, db.PlanMonthly, *u.PremiumPlan)
	assert.WithinDuration(t, f.clock.Add(33*24*time.Hour), *u.PremiumExpiresAt, time.Second)
}

func TestWebhook_Addon(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Checkout(ctx, f.user(t, "bob"), billing.CheckoutRequest{PackageID: "roses_5", OriginURL: "https://ember.test"})
	require.NoError(t, err)
	f.provider.Pay(res.SessionID)
	require.NoError(t, f.svc.Webhook(ctx, []byte(res.SessionID), "ok"))
	require.NoError(t, f.svc.Webhook(ctx, []byte(res.SessionID), "ok"))

	u := f.user(t, "bob")
	assert.Equal(t, 5, u.ExtraRoses)
	assert.Equal(t, 0, u.ExtraSuperLikes)
	assert.False(t, u.PremiumActive(f.clock))
}

func TestWebhook_BadSignature(t *testing.T) {
	f := setup(t)
	err := f.svc.Webhook(context.Background(), []byte("cs_test_1"), "forged")
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)
}

func TestEndpoints(t *testing.T) {
	f := setup(t)
	r := testutil.Router(f.appCtx, billing.NewRegistrar(f.appCtx, billing.WithProvider(f.provider)))
	tok := testutil.Token(t, f.appCtx, "alice")

	w := testutil.Do(t, r, http.MethodGet, "/api/premium/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cat := testutil.Decode[billing.Catalog](t, w)
	assert.Len(t, cat.Plans, 3)
	assert.Len(t, cat.Addons, 2)

	w = testutil.Do(t, r, http.MethodPost, "/api/payments/checkout", "", map[string]string{"package_id": "weekly"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.Do(t, r, http.MethodPost, "/api/payments/checkout", tok, map[string]string{
		"package_id": db.PlanYearly, "origin_url": "http://localhost:3000",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := testutil.Decode[billing.CheckoutResult](t, w)

	f.provider.Pay(res.SessionID)
	w = testutil.Do(t, r, http.MethodGet, "/api/payments/status/"+res.SessionID, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := testutil.Decode[billing.PaymentStatus](t, w)
	assert.True(t, st.Fulfilled)
	assert.Equal(t, db.PlanYearly, *f.user(t, "alice").PremiumPlan)

	w = testutil.Do(t, r, http.MethodPost, "/api/payments/webhook", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
