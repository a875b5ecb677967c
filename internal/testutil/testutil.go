// Package testutil wires in-memory SQLite and miniredis for package tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/cache"
	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/logger"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/server"
)

var dbSeq atomic.Int64

// DB spins up an isolated in-memory SQLite DB with the full schema.
// Every call gets its own database, even within one test.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), dbSeq.Add(1))
	dbase, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name))
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory DB alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return dbase
}

// Redis starts a miniredis and returns a cache bound to it.
func Redis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Client.Close() })
	return rc, mr
}

// App builds an AppContext over fresh SQLite + miniredis with a local bus.
func App(t *testing.T) *app.AppContext {
	t.Helper()

	cfg := config.New()
	cfg.Realtime.Bus = "local"
	rc, _ := Redis(t)
	registry := realtime.NewRegistry(logger.Discard())

	bus := &BusRecorder{next: realtime.NewLocalBus(registry)}
	return app.New(cfg, DB(t), rc, logger.Discard(), bus, registry)
}

// BusRecorder records every published event before local delivery.
type BusRecorder struct {
	mu     sync.Mutex
	next   realtime.Bus
	events map[string][]realtime.Event
}

func (b *BusRecorder) Publish(ctx context.Context, userID string, ev realtime.Event) error {
	b.mu.Lock()
	if b.events == nil {
		b.events = make(map[string][]realtime.Event)
	}
	b.events[userID] = append(b.events[userID], ev)
	b.mu.Unlock()
	return b.next.Publish(ctx, userID, ev)
}

// Published returns the event types sent to userID by an App bus, in order.
func Published(appCtx *app.AppContext, userID string) []string {
	b, ok := appCtx.Bus.(*BusRecorder)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, ev := range b.events[userID] {
		out = append(out, ev.Type())
	}
	return out
}

// LastEvent returns the latest event of typ sent to userID, or nil.
func LastEvent(appCtx *app.AppContext, userID, typ string) realtime.Event {
	b, ok := appCtx.Bus.(*BusRecorder)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	evs := b.events[userID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type() == typ {
			return evs[i]
		}
	}
	return nil
}

// UserOpt mutates a user before insert.
type UserOpt func(u *db.User)

// Discoverable returns a complete, verified profile used by most tests.
func Discoverable(id, gender string, opts ...UserOpt) *db.User {
	age := 28
	interested := "everyone"
	u := &db.User{
		ID:                 id,
		Email:              id + "@test.com",
		Name:               strings.ToUpper(id[:1]) + id[1:],
		Age:                &age,
		Gender:             &gender,
		InterestedIn:       &interested,
		Photos:             []string{"https://img.test/" + id + ".jpg"},
		Prompts:            []db.Prompt{{Question: "A perfect Sunday looks like...", Answer: "coffee"}},
		VerificationStatus: db.VerificationVerified,
		PhotoVerification:  db.VerificationVerified,
		PhoneVerification:  db.VerificationUnverified,
		IDVerification:     db.VerificationUnverified,
		PreferredLanguage:  "en",
		IsProfileComplete:  true,
		CreatedAt:          time.Now().UTC().Add(-30 * 24 * time.Hour),
		LastActive:         time.Now().UTC(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Seed inserts users and fails the test on error.
func Seed(t *testing.T, gdb *gorm.DB, users ...*db.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, gdb.Create(u).Error)
	}
}

func String(s string) *string { return &s }
func Int(i int) *int { return &i }
func Float(f float64) *float64 { return &f }
func Time(tm time.Time) *time.Time { return &tm }

// Router mounts registrars under /api the way the server does.
func Router(appCtx *app.AppContext, registrars ...server.Registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return server.NewRouter(appCtx, registrars...)
}

// Token issues a bearer token for userID.
func Token(t *testing.T, appCtx *app.AppContext, userID string) string {
	t.Helper()
	tok, err := appCtx.Auth.Tokens().Issue(userID)
	require.NoError(t, err)
	return tok
}

// Do runs one request against h. body is JSON encoded unless nil.
func Do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorded JSON body.
func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
