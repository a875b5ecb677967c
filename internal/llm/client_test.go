package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/llm"
)

func newClient(t *testing.T, h http.HandlerFunc) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.LLM.BaseURL = srv.URL + "/v1/"
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Model = "test-model"
	cfg.LLM.Timeout = time.Second
	return llm.New(cfg)
}

func TestComplete(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Len(t, body["messages"], 2)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[2, 0]"}}]}`))
	})

	out, err := c.Complete(context.Background(), "sys", "user", 50)
	require.NoError(t, err)
	assert.Equal(t, "[2, 0]", out)
}

func TestComplete_ErrorStatus(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	_, err := c.Complete(context.Background(), "sys", "user", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestComplete_Disabled(t *testing.T) {
	cfg := config.New()
	cfg.LLM.APIKey = ""
	_, err := llm.New(cfg).Complete(context.Background(), "s", "u", 10)
	assert.ErrorIs(t, err, llm.ErrDisabled)
}

func TestIndices(t *testing.T) {
	got, err := llm.Indices("```json\n[3, 0, 9, 3, \"x\", 1]\n```", 5)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 1}, got)

	_, err = llm.Indices("no idea", 5)
	assert.ErrorIs(t, err, llm.ErrMalformed)
}

func TestStrings(t *testing.T) {
	got, err := llm.Strings(`Here you go: ["Hi!", " ", "What's up?"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi!", "What's up?"}, got)

	_, err = llm.Strings(`[]`)
	assert.ErrorIs(t, err, llm.ErrMalformed)
}
