package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.Assistant{
		AssistantBaseURL: srv.URL,
		AssistantAPIKey:  "key",
		Model:            "test-model",
		AssistantTimeout: time.Second,
	}, "Office hours: 8am-4pm.")
}

func TestAsk(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" We open at 8am. "}}]}`))
	})

	answer, err := c.Ask(context.Background(), "When do you open?")
	require.NoError(t, err)
	assert.Equal(t, "We open at 8am.", answer)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[0].Content, "Office hours: 8am-4pm.")
	assert.Equal(t, "When do you open?", got.Messages[1].Content)
}

func TestAsk_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Ask(context.Background(), "?")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestAsk_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Ask(context.Background(), "?")
	assert.Error(t, err)
}

func TestLoadKnowledge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	require.NoError(t, os.WriteFile(path, []byte("  facts\n"), 0o600))

	kb, err := LoadKnowledge(path)
	require.NoError(t, err)
	assert.Equal(t, "facts", kb)

	kb, err = LoadKnowledge("")
	require.NoError(t, err)
	assert.Empty(t, kb)

	_, err = LoadKnowledge(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
