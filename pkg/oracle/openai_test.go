package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAITestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Zero(t, req.Temperature, "determinism: temperature pinned to 0")
		assert.Equal(t, maxAnswerTokens, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestOpenAIComplete(t *testing.T) {
	srv := openAITestServer(t, http.StatusOK,
		`{"choices": [{"message": {"content": "DECISION: SAFE_TO_DEPLOY"}}]}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", "", srv.URL)
	answer, err := p.Complete(context.Background(), "system prompt", "evidence")
	require.NoError(t, err)
	assert.Equal(t, "DECISION: SAFE_TO_DEPLOY", answer)
}

func TestOpenAIAuthFailureIsPermanent(t *testing.T) {
	srv := openAITestServer(t, http.StatusUnauthorized,
		`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", "", srv.URL)
	_, err := p.Complete(context.Background(), "s", "p")
	require.Error(t, err)

	var perm *permanentError
	assert.True(t, errors.As(err, &perm), "4xx must not be retried")
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestOpenAIServerErrorIsTransient(t *testing.T) {
	srv := openAITestServer(t, http.StatusInternalServerError, `upstream exploded`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", "", srv.URL)
	_, err := p.Complete(context.Background(), "s", "p")
	require.Error(t, err)

	var perm *permanentError
	assert.False(t, errors.As(err, &perm), "5xx is retryable")
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := openAITestServer(t, http.StatusOK, `{"choices": []}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", "", srv.URL)
	_, err := p.Complete(context.Background(), "s", "p")
	assert.Error(t, err)
}

func TestOpenAIDefaults(t *testing.T) {
	p := NewOpenAIProvider("k", "", "")
	assert.Equal(t, "gpt-4o-mini", p.Model)
	assert.Equal(t, defaultOpenAIEndpoint, p.Endpoint)
	assert.Equal(t, "openai", p.Name())
}
