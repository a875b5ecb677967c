package icebreakers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/icebreakers"
	"github.com/oggyb/ember/internal/testutil"
)

type fixture struct {
	appCtx *app.AppContext
	svc    *icebreakers.Service
	match  *db.Match
}

func noShuffle(int, func(i, j int)) {}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{appCtx: testutil.App(t)}
	testutil.Seed(t, f.appCtx.DB,
		testutil.Discoverable("alice", "female"),
		testutil.Discoverable("bob", "male"),
		testutil.Discoverable("carol", "female"),
	)
	m, _, err := repository.NewMatchRepository(f.appCtx.DB).CreateIgnore(context.Background(), "alice", "bob", time.Now())
	require.NoError(t, err)
	f.match = m
	f.svc = icebreakers.NewIcebreakerService(f.appCtx, icebreakers.WithShuffle(noShuffle))
	return f
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	s, err := f.svc.Start(ctx, "alice", icebreakers.StartRequest{MatchID: f.match.ID, GameType: icebreakers.GameWouldYouRather})
	require.NoError(t, err)
	assert.Len(t, s.Questions, 5)
	assert.Equal(t, icebreakers.StatusActive, s.Status)
	assert.Equal(t, 0, s.CurrentQuestion)

	got, err := f.svc.Get(ctx, "bob", s.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 5)
	q, ok := got.Questions[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Travel to the past", q["a"])

	_, err = f.svc.Get(ctx, "carol", s.ID)
	assert.Equal(t, http.StatusForbidden, svcErr.Map(err).StatusCode)
	_, err = f.svc.Get(ctx, "alice", "ice_missing")
	assert.Equal(t, http.StatusNotFound, svcErr.Map(err).StatusCode)

	_, err = f.svc.Start(ctx, "alice", icebreakers.StartRequest{MatchID: f.match.ID, GameType: "charades"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)
	_, err = f.svc.Start(ctx, "carol", icebreakers.StartRequest{MatchID: f.match.ID, GameType: icebreakers.GameThisOrThat})
	assert.Equal(t, http.StatusForbidden, svcErr.Map(err).StatusCode)
}

func TestAnswer_PlaysThrough(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	s, err := f.svc.Start(ctx, "alice", icebreakers.StartRequest{MatchID: f.match.ID, GameType: icebreakers.GameQuickQuestions})
	require.NoError(t, err)

	got, err := f.svc.Answer(ctx, "alice", s.ID, icebreakers.AnswerRequest{Answer: "Hiking"})
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentQuestion)
	ev := testutil.LastEvent(f.appCtx, "bob", "icebreaker_answer")
	require.NotNil(t, ev)
	assert.Equal(t, s.ID, ev["session_id"])
	assert.Equal(t, false, ev["both_answered"])

	_, err = f.svc.Answer(ctx, "alice", s.ID, icebreakers.AnswerRequest{Answer: "Again"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)

	got, err = f.svc.Answer(ctx, "bob", s.ID, icebreakers.AnswerRequest{Answer: "Reading"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentQuestion)
	assert.Equal(t, map[string]string{"alice": "Hiking", "bob": "Reading"}, got.Answers[0])

	for q := 1; q < 5; q++ {
		_, err = f.svc.Answer(ctx, "alice", s.ID, icebreakers.AnswerRequest{Answer: "a"})
		require.NoError(t, err)
		got, err = f.svc.Answer(ctx, "bob", s.ID, icebreakers.AnswerRequest{Answer: "b"})
		require.NoError(t, err)
	}
	assert.Equal(t, icebreakers.StatusCompleted, got.Status)
	assert.Equal(t, "completed", testutil.LastEvent(f.appCtx, "alice", "icebreaker_answer")["status"])

	_, err = f.svc.Answer(ctx, "alice", s.ID, icebreakers.AnswerRequest{Answer: "late"})
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)

	stored, err := f.svc.Get(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Answers, 5)
}

func TestEndpoints(t *testing.T) {
	f := setup(t)
	r := testutil.Router(f.appCtx, icebreakers.NewRegistrar(f.appCtx, icebreakers.WithShuffle(noShuffle)))
	alice := testutil.Token(t, f.appCtx, "alice")

	w := testutil.Do(t, r, http.MethodGet, "/api/icebreakers/games", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	games := testutil.Decode[struct {
		Games []icebreakers.Game `json:"games"`
	}](t, w)
	assert.Len(t, games.Games, 3)

	w = testutil.Do(t, r, http.MethodPost, "/api/icebreakers/start", alice, map[string]string{
		"match_id": f.match.ID, "game_type": icebreakers.GameThisOrThat,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := testutil.Decode[db.IcebreakerSession](t, w)
	require.NotEmpty(t, s.ID)

	w = testutil.Do(t, r, http.MethodPost, "/api/icebreakers/"+s.ID+"/answer", alice, map[string]string{"answer": "Cats"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(t, r, http.MethodGet, "/api/icebreakers/"+s.ID, testutil.Token(t, f.appCtx, "bob"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := testutil.Decode[db.IcebreakerSession](t, w)
	assert.Equal(t, "Cats", got.Answers[0]["alice"])

	w = testutil.Do(t, r, http.MethodGet, "/api/icebreakers/"+s.ID, testutil.Token(t, f.appCtx, "carol"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
