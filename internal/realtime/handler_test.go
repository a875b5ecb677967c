package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
	apperr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/logger"
)

type tokenAuth map[string]string

func (a tokenAuth) Authenticate(_ context.Context, token string) (*db.User, error) {
	id, ok := a[token]
	if !ok {
		return nil, apperr.ErrInvalidToken
	}
	return &db.User{ID: id}, nil
}

type staticMatches map[string]*db.Match

func (m staticMatches) FindByID(_ context.Context, id string) (*db.Match, error) {
	if match, ok := m[id]; ok {
		return match, nil
	}
	return nil, errors.New("match not found")
}

type staticCalls map[string]*db.Call

func (m staticCalls) FindByID(_ context.Context, id string) (*db.Call, error) {
	if call, ok := m[id]; ok {
		return call, nil
	}
	return nil, errors.New("call not found")
}

// staticBlocks holds blocked pairs keyed "a|b" in either order.
type staticBlocks map[string]bool

func (b staticBlocks) IsBlockedEither(_ context.Context, x, y string) (bool, error) {
	return b[x+"|"+y] || b[y+"|"+x], nil
}

func setupWS(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()
	return setupWSWithBlocks(t, staticBlocks{})
}

func setupWSWithBlocks(t *testing.T, blocks staticBlocks) (*httptest.Server, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.New()
	reg := NewRegistry(logger.Discard())
	bus := NewLocalBus(reg)
	router := DefaultRouter(bus,
		staticMatches{"match_1": {ID: "match_1", User1ID: "user_a", User2ID: "user_b"}},
		staticCalls{"call_1": {ID: "call_1", CallerID: "user_a", CalleeID: "user_b"}},
		blocks,
		logger.Discard(),
	)
	h := NewHandler(cfg, tokenAuth{"tok-a": "user_a", "tok-b": "user_b"}, reg, router, logger.Discard())

	engine := gin.New()
	h.Register(&engine.RouterGroup)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitOnline(t *testing.T, reg *Registry, userID string) {
	t.Helper()
	require.Eventually(t, func() bool { return reg.Online(userID) }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWS_RejectsBadToken(t *testing.T) {
	srv, _ := setupWS(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_PingPong(t *testing.T) {
	srv, _ := setupWS(t)
	conn := dial(t, srv, "tok-a")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, TypePong, readEvent(t, conn).Type())
}

func TestWS_TypingRelayedToPartner(t *testing.T) {
	srv, reg := setupWS(t)
	a := dial(t, srv, "tok-a")
	b := dial(t, srv, "tok-b")
	waitOnline(t, reg, "user_a")
	waitOnline(t, reg, "user_b")

	require.NoError(t, a.WriteJSON(map[string]any{"type": "typing", "match_id": "match_1", "is_typing": true}))

	ev := readEvent(t, b)
	assert.Equal(t, TypeTyping, ev.Type())
	assert.Equal(t, "match_1", ev["match_id"])
	assert.Equal(t, "user_a", ev["user_id"])
	assert.Equal(t, true, ev["is_typing"])
}

func TestWS_SignalRelayedToOtherParty(t *testing.T) {
	srv, reg := setupWS(t)
	a := dial(t, srv, "tok-a")
	b := dial(t, srv, "tok-b")
	waitOnline(t, reg, "user_a")
	waitOnline(t, reg, "user_b")

	require.NoError(t, b.WriteJSON(map[string]any{
		"type": "webrtc_signal", "call_id": "call_1", "signal_type": "answer",
		"data": map[string]any{"sdp": "v=0"},
	}))

	ev := readEvent(t, a)
	assert.Equal(t, TypeWebRTCSignal, ev.Type())
	assert.Equal(t, "answer", ev["signal_type"])
	assert.Equal(t, "user_b", ev["from_user_id"])
	assert.Equal(t, map[string]any{"sdp": "v=0"}, ev["data"])
}

func TestWS_TypingOnForeignMatchReturnsError(t *testing.T) {
	srv, reg := setupWS(t)
	a := dial(t, srv, "tok-a")
	waitOnline(t, reg, "user_a")

	require.NoError(t, a.WriteJSON(map[string]any{"type": "typing", "match_id": "match_404"}))
	ev := readEvent(t, a)
	assert.Equal(t, TypeError, ev.Type())
	assert.Equal(t, "typing", ev["for"])
}

func TestWS_BlockedPairNotRelayed(t *testing.T) {
	srv, reg := setupWSWithBlocks(t, staticBlocks{"user_b|user_a": true})
	a := dial(t, srv, "tok-a")
	b := dial(t, srv, "tok-b")
	waitOnline(t, reg, "user_a")
	waitOnline(t, reg, "user_b")

	require.NoError(t, a.WriteJSON(map[string]any{"type": "typing", "match_id": "match_1", "is_typing": true}))
	ev := readEvent(t, a)
	assert.Equal(t, TypeError, ev.Type())
	assert.Equal(t, "typing", ev["for"])

	require.NoError(t, a.WriteJSON(map[string]any{"type": "webrtc_signal", "call_id": "call_1", "signal_type": "offer"}))
	ev = readEvent(t, a)
	assert.Equal(t, TypeError, ev.Type())
	assert.Equal(t, "webrtc_signal", ev["for"])

	// b got nothing; its next frame is its own pong
	require.NoError(t, b.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, TypePong, readEvent(t, b).Type())
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	srv, reg := setupWS(t)
	a := dial(t, srv, "tok-a")
	waitOnline(t, reg, "user_a")

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return !reg.Online("user_a") }, 2*time.Second, 10*time.Millisecond)
}
