package llm

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
	last    Request
}

func (c *scriptedClient) Complete(_ context.Context, req Request) (string, error) {
	i := c.calls
	c.calls++
	c.last = req
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", context.DeadlineExceeded
}

func newTestService(client Client) (*Service, *[]time.Duration) {
	s := NewService(client, ServiceConfig{Model: "claude-sonnet-4-5-20250929"}, utils.NewNopLogger())
	sleeps := &[]time.Duration{}
	s.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return s, sleeps
}

func TestService_RetriesTransientErrors(t *testing.T) {
	client := &scriptedClient{
		errs:    []error{context.DeadlineExceeded, context.DeadlineExceeded},
		replies: []string{"", "", "Analyysi"},
	}
	s, sleeps := newTestService(client)

	got, err := s.Call(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, "Analyysi", got)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)
	assert.Equal(t, "system", client.last.System)
	assert.Equal(t, int64(2048), client.last.MaxTokens)
}

func TestService_GivesUpAfterMaxAttempts(t *testing.T) {
	client := &scriptedClient{}
	s, sleeps := newTestService(client)

	_, err := s.Call(context.Background(), "system", "user")

	require.Error(t, err)
	assert.Equal(t, 3, client.calls)
	assert.Len(t, *sleeps, 2)
	assert.Equal(t, CategoryTimeout, Classify(err))
	assert.Equal(t, userMessages[CategoryTimeout], UserMessage(err))
}

func TestService_AuthIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusUnauthorized, "authentication_error")
	})
	s, sleeps := newTestService(client)

	_, err := s.Call(context.Background(), "system", "user")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, *sleeps)
	assert.Equal(t, "Tunnistautumisvirhe. Tarkista API-avain.", UserMessage(err))
}

func TestService_RateLimitWaitsLonger(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeError(w, http.StatusTooManyRequests, "rate_limit_error")
			return
		}
		writeMessage(w, "ok")
	})
	s, sleeps := newTestService(client)

	got, err := s.Call(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []time.Duration{4 * time.Second}, *sleeps)
}

func TestService_CallJSON(t *testing.T) {
	client := &scriptedClient{replies: []string{"Tässä tiedot:\n```json\n{\"osoite\": \"Testikatu 1 }\", \"hinta\": 1}\n```"}}
	s, _ := newTestService(client)

	got, err := s.CallJSON(context.Background(), "Poimi tiedot.", "# Kohde")

	require.NoError(t, err)
	assert.JSONEq(t, `{"osoite": "Testikatu 1 }", "hinta": 1}`, got)
	assert.Contains(t, client.last.System, "Poimi tiedot.")
	assert.Contains(t, client.last.System, "JSON")
}

func TestService_CallJSONRejectsProse(t *testing.T) {
	s, _ := newTestService(&scriptedClient{replies: []string{"En löytänyt tietoja."}})

	_, err := s.CallJSON(context.Background(), "s", "u")

	assert.ErrorContains(t, err, "not a json object")
}
