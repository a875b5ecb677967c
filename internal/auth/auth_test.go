package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/oggyb/ember/internal/auth"
	"github.com/oggyb/ember/internal/db"
	apperr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/testutil"
)

func TestTokenRoundTrip(t *testing.T) {
	m := auth.NewTokenManager("secret", time.Hour)
	tok, err := m.Issue("user_1")
	require.NoError(t, err)

	id, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user_1", id)
}

func TestTokenExpiredAndInvalid(t *testing.T) {
	expired := auth.NewTokenManager("secret", -time.Minute)
	tok, err := expired.Issue("user_1")
	require.NoError(t, err)

	_, err = auth.NewTokenManager("secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	good, _ := auth.NewTokenManager("other", time.Hour).Issue("user_1")
	_, err = auth.NewTokenManager("secret", time.Hour).Parse(good)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = auth.NewTokenManager("secret", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}

func TestAuthenticator_SessionThenJWT(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	testutil.Seed(t, gdb, testutil.Discoverable("alice", "female"))

	sessions := repository.NewSessionRepository(gdb)
	require.NoError(t, sessions.Create(ctx, &db.UserSession{Token: "sess_1", UserID: "alice", ExpiresAt: time.Now().Add(time.Hour)}))

	tokens := auth.NewTokenManager("secret", time.Hour)
	a := auth.NewAuthenticator(tokens, sessions, repository.NewUserRepository(gdb))

	u, err := a.Authenticate(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.ID)

	jwtTok, _ := tokens.Issue("alice")
	u, err = a.Authenticate(ctx, jwtTok)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.ID)

	ghost, _ := tokens.Issue("ghost")
	_, err = a.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = a.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGoogleState(t *testing.T) {
	g := auth.NewGoogle("id", "secret", "http://localhost/cb", "state-key")
	state := g.MakeState()
	assert.True(t, g.VerifyState(state))
	assert.False(t, g.VerifyState(state+"x"))
	assert.False(t, g.VerifyState("nodot"))
	assert.False(t, auth.NewGoogle("id", "secret", "", "other-key").VerifyState(state))
}

func TestGoogleExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"email":"Alice@Example.com","name":"Alice","picture":"https://img/a.png"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := auth.NewGoogle("id", "secret", "http://localhost/cb", "state-key").
		WithEndpoints(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}, srv.URL+"/userinfo")

	_, err := g.Exchange(context.Background(), "code", "forged.state")
	assert.ErrorIs(t, err, auth.ErrBadState)

	u, err := g.Exchange(context.Background(), "code", g.MakeState())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "https://img/a.png", u.Picture)
}
