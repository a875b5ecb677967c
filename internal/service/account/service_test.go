package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/oggyb/ember/internal/auth"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/account"
	"github.com/oggyb/ember/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	rec := &events.Recorder{}
	appCtx.Events = rec
	svc := account.NewAccountService(appCtx)

	sess, err := svc.Register(ctx, account.RegisterRequest{Email: " Alice@Example.com ", Password: "secret1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.SessionToken)
	assert.NotEmpty(t, sess.AccessToken)
	require.Len(t, rec.Events, 1)
	assert.Equal(t, events.UserRegistered, rec.Events[0].Key)

	stored, err := repository.NewUserRepository(appCtx.DB).FindByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, db.VerificationUnverified, stored.VerificationStatus)
	assert.False(t, stored.IsProfileComplete)

	_, err = svc.Register(ctx, account.RegisterRequest{Email: "ALICE@example.com", Password: "other12", Name: "A"})
	assert.Equal(t, "Email already registered", svcErr.Map(err).Message)

	_, err = svc.Login(ctx, account.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidCredentials)
	_, err = svc.Login(ctx, account.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidCredentials)

	login, err := svc.Login(ctx, account.LoginRequest{Email: "Alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	// both the session and the JWT resolve to the same user
	for _, tok := range []string{login.SessionToken, login.AccessToken} {
		u, err := appCtx.Auth.Authenticate(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID, u.ID)
	}

	require.NoError(t, svc.Logout(ctx, login.SessionToken))
	_, err = repository.NewSessionRepository(appCtx.DB).FindValid(ctx, login.SessionToken, stored.CreatedAt)
	assert.Error(t, err)
}

func TestLogin_GoogleOnlyAccount(t *testing.T) {
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, testutil.Discoverable("gina", "female"))

	_, err := account.NewAccountService(appCtx).Login(context.Background(), account.LoginRequest{Email: "gina@test.com", Password: "anything"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidCredentials)
}

func fakeGoogle(t *testing.T, email string) *auth.GoogleOAuth {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"` + email + `","name":"Gina","picture":"https://img/g.png"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return auth.NewGoogle("client", "secret", "http://localhost/cb", "state-key").
		WithEndpoints(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}, srv.URL+"/userinfo")
}

func TestGoogleSession(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	svc := account.NewAccountService(appCtx, account.WithGoogle(fakeGoogle(t, "gina@test.com")))

	url, state, err := svc.GoogleLogin()
	require.NoError(t, err)
	assert.Contains(t, url, "state=")

	_, err = svc.GoogleSession(ctx, "code", "forged.state")
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)

	first, err := svc.GoogleSession(ctx, "code", state)
	require.NoError(t, err)
	assert.Equal(t, "Gina", first.User.Name)
	require.NotNil(t, first.User.Picture)

	// a second sign-in reuses the account
	again, err := svc.GoogleSession(ctx, "code", state)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.NotEqual(t, first.SessionToken, again.SessionToken)
}

func TestGoogleLogin_Disabled(t *testing.T) {
	appCtx := testutil.App(t)
	appCtx.Config.Auth.GoogleClientID = ""
	_, _, err := account.NewAccountService(appCtx).GoogleLogin()
	assert.ErrorIs(t, err, svcErr.ErrServiceUnavailable)
}

func TestEndpoints(t *testing.T) {
	appCtx := testutil.App(t)
	r := testutil.Router(appCtx, account.NewRegistrar(appCtx))

	w := testutil.Do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "secret1", "name": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bob@example.com", "password": "secret1", "name": "Bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	w = testutil.Do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "nope12"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", testutil.Decode[map[string]string](t, w)["code"])

	w = testutil.Do(t, r, http.MethodGet, "/api/auth/me", cookie.Value, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@example.com", testutil.Decode[map[string]any](t, w)["email"])

	w = testutil.Do(t, r, http.MethodPost, "/api/auth/logout", cookie.Value, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, r, http.MethodGet, "/api/auth/me", cookie.Value, nil)
	// the session row is gone and a session token is not a JWT
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
