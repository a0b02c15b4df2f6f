package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMessage(w http.ResponseWriter, text string) {
	content := []map[string]any{}
	if text != "" {
		content = append(content, map[string]any{"type": "text", "text": text})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":          "msg_test_001",
		"type":        "message",
		"role":        "assistant",
		"content":     content,
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
}

func writeError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"type":  "error",
		"error": map[string]any{"type": kind, "message": kind},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewAnthropicClient("test-key", option.WithBaseURL(ts.URL))
}

func TestAnthropicClient_Complete(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeMessage(w, "Analyysi valmis")
	})

	got, err := c.Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		System:    "Olet asuntoasiantuntija.",
		User:      "# Oikotie-kohde 1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Analyysi valmis", got)
	assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
	system, err := json.Marshal(body["system"])
	require.NoError(t, err)
	assert.Contains(t, string(system), "Olet asuntoasiantuntija.")
}

func TestAnthropicClient_EmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, "") })

	_, err := c.Complete(context.Background(), Request{Model: "m", MaxTokens: 10, User: "x"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, CategoryAPI, Classify(err))
}

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		kind   string
		want   Category
	}{
		{http.StatusUnauthorized, "authentication_error", CategoryAuth},
		{http.StatusForbidden, "permission_error", CategoryAuth},
		{http.StatusBadRequest, "invalid_request_error", CategoryInvalidRequest},
		{http.StatusNotFound, "not_found_error", CategoryInvalidRequest},
		{http.StatusTooManyRequests, "rate_limit_error", CategoryRateLimited},
		{http.StatusInternalServerError, "api_error", CategoryAPI},
		{529, "overloaded_error", CategoryAPI},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				writeError(w, tt.status, tt.kind)
			})

			_, err := c.Complete(context.Background(), Request{Model: "m", MaxTokens: 10, User: "x"})

			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
			assert.Equal(t, int32(1), calls.Load(), "sdk retries must be disabled")
		})
	}
}

func TestClassify_Plain(t *testing.T) {
	assert.Equal(t, Category(""), Classify(nil))
	assert.Equal(t, CategoryTimeout, Classify(eris.Wrap(context.DeadlineExceeded, "call")))
	assert.Equal(t, CategoryGeneral, Classify(errors.New("connection reset by peer")))
	assert.Equal(t, CategoryAPI, Classify(eris.Wrap(ErrEmptyResponse, "x")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Pyyntö aikakatkaistiin. Verkkoyhteydessä voi olla ongelmia.", UserMessage(context.DeadlineExceeded))
	assert.Equal(t, "Analyysin hakeminen epäonnistui. Yritä uudelleen myöhemmin.", UserMessage(errors.New("boom")))
}

func TestCategory_Retryable(t *testing.T) {
	assert.False(t, CategoryAuth.Retryable())
	assert.False(t, CategoryInvalidRequest.Retryable())
	assert.True(t, CategoryRateLimited.Retryable())
	assert.True(t, CategoryTimeout.Retryable())
	assert.True(t, CategoryAPI.Retryable())
	assert.True(t, CategoryGeneral.Retryable())
}
