package calls_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/calls"
	"github.com/oggyb/ember/internal/testutil"
)

type fixture struct {
	appCtx *app.AppContext
	svc    *calls.Service
	match  *db.Match
	clock  time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{appCtx: testutil.App(t), clock: time.Now().UTC()}
	testutil.Seed(t, f.appCtx.DB,
		testutil.Discoverable("alice", "female"),
		testutil.Discoverable("bob", "male"),
		testutil.Discoverable("carol", "female"),
	)
	m, _, err := repository.NewMatchRepository(f.appCtx.DB).CreateIgnore(context.Background(), "alice", "bob", f.clock)
	require.NoError(t, err)
	f.match = m
	f.svc = calls.NewCallService(f.appCtx, calls.WithClock(func() time.Time { return f.clock }))
	return f
}

func (f *fixture) user(t *testing.T, id string) *db.User {
	t.Helper()
	u, err := repository.NewUserRepository(f.appCtx.DB).FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestCallLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	call, err := f.svc.Initiate(ctx, f.user(t, "alice"), calls.InitiateRequest{MatchID: f.match.ID, CallType: "video"})
	require.NoError(t, err)
	assert.Equal(t, db.CallRinging, call.Status)
	assert.Equal(t, "bob", call.CalleeID)
	assert.False(t, call.CalleeOnline)
	ev := testutil.LastEvent(f.appCtx, "bob", "call_incoming")
	require.NotNil(t, ev)
	assert.Equal(t, "video", ev["call_type"])

	_, err = f.svc.Answer(ctx, "alice", call.ID)
	assert.Equal(t, http.StatusForbidden, svcErr.Map(err).StatusCode)
	_, err = f.svc.Answer(ctx, "carol", call.ID)
	assert.Equal(t, http.StatusForbidden, svcErr.Map(err).StatusCode)

	answered, err := f.svc.Answer(ctx, "bob", call.ID)
	require.NoError(t, err)
	assert.Equal(t, db.CallActive, answered.Status)
	assert.NotNil(t, testutil.LastEvent(f.appCtx, "alice", "call_answered"))

	_, err = f.svc.Answer(ctx, "bob", call.ID)
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)

	f.clock = f.clock.Add(90 * time.Second)
	ended, err := f.svc.End(ctx, "bob", call.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, ended.Duration)
	assert.EqualValues(t, 90, testutil.LastEvent(f.appCtx, "alice", "call_ended")["duration"])

	stored, err := repository.NewCallRepository(f.appCtx.DB).FindByID(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, db.CallEnded, stored.Status)
	assert.Equal(t, 90, stored.Duration)

	_, err = f.svc.End(ctx, "alice", call.ID)
	assert.Error(t, err)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	call, err := f.svc.Initiate(ctx, f.user(t, "alice"), calls.InitiateRequest{MatchID: f.match.ID})
	require.NoError(t, err)
	assert.Equal(t, calls.CallAudio, call.CallType)

	rejected, err := f.svc.Reject(ctx, "bob", call.ID)
	require.NoError(t, err)
	assert.Equal(t, db.CallRejected, rejected.Status)
	assert.NotNil(t, testutil.LastEvent(f.appCtx, "alice", "call_rejected"))

	err = f.svc.Signal(ctx, "alice", call.ID, calls.SignalRequest{SignalType: "offer"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)
}

func TestInitiate_Guards(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Initiate(ctx, f.user(t, "carol"), calls.InitiateRequest{MatchID: f.match.ID})
	assert.ErrorIs(t, err, svcErr.ErrNotParticipant)
	_, err = f.svc.Initiate(ctx, f.user(t, "alice"), calls.InitiateRequest{MatchID: f.match.ID, CallType: "hologram"})
	assert.Equal(t, "validation_error", svcErr.Map(err).Code)

	require.NoError(t, f.appCtx.DB.Create(&db.Block{BlockerID: "bob", BlockedID: "alice"}).Error)
	_, err = f.svc.Initiate(ctx, f.user(t, "alice"), calls.InitiateRequest{MatchID: f.match.ID})
	assert.ErrorIs(t, err, svcErr.ErrBlocked)
}

func TestSignalRelay(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	call, err := f.svc.Initiate(ctx, f.user(t, "alice"), calls.InitiateRequest{MatchID: f.match.ID})
	require.NoError(t, err)

	sdp := json.RawMessage(`{"sdp":"v=0"}`)
	require.NoError(t, f.svc.Signal(ctx, "alice", call.ID, calls.SignalRequest{SignalType: "offer", Data: sdp}))
	ev := testutil.LastEvent(f.appCtx, "bob", "webrtc_signal")
	require.NotNil(t, ev)
	assert.Equal(t, "alice", ev["from_user_id"])
	assert.Equal(t, sdp, ev["data"])

	err = f.svc.Signal(ctx, "alice", call.ID, calls.SignalRequest{SignalType: "bye"})
	assert.Equal(t, "validation_error", svcErr.Map(err).Code)
	err = f.svc.Signal(ctx, "bob", "call_missing", calls.SignalRequest{SignalType: "answer"})
	assert.Equal(t, "Call not found", svcErr.Map(err).Message)
}

func TestEndpoints(t *testing.T) {
	f := setup(t)
	f.appCtx.Config.Calls.TURNURLs = []string{"turn:turn.ember.test:3478"}
	f.appCtx.Config.Calls.TURNUsername = "ember"
	f.appCtx.Config.Calls.TURNCredential = "pw"
	r := testutil.Router(f.appCtx, calls.NewRegistrar(f.appCtx))
	alice := testutil.Token(t, f.appCtx, "alice")

	w := testutil.Do(t, r, http.MethodGet, "/api/calls/ice-servers", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	servers := testutil.Decode[map[string][]calls.ICEServer](t, w)["iceServers"]
	require.Len(t, servers, 2)
	assert.Equal(t, "ember", servers[1].Username)

	w = testutil.Do(t, r, http.MethodPost, "/api/calls/initiate", alice, map[string]string{"match_id": f.match.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	callID := testutil.Decode[map[string]any](t, w)["call_id"].(string)

	w = testutil.Do(t, r, http.MethodPost, "/api/calls/"+callID+"/answer", testutil.Token(t, f.appCtx, "bob"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, r, http.MethodPost, "/api/calls/"+callID+"/signal", alice, map[string]any{"signal_type": "ice-candidate", "data": map[string]string{"candidate": "c"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, r, http.MethodPost, "/api/calls/"+callID+"/end", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
