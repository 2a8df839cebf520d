package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/securedeploy/guardrail/pkg/engine"
)

type stubProvider struct {
	answers []string
	errs    []error
	calls   int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "", errors.New("stub exhausted")
}

func newTestClient(p Provider, retries int) *Client {
	return NewClient(p, time.Second, retries, zap.NewNop().Sugar())
}

func evidence() engine.EvidencePayload {
	return engine.EvidencePayload{Text: "SECURITY SCAN SUMMARY: nothing"}
}

func TestConsultSuccess(t *testing.T) {
	p := &stubProvider{answers: []string{"DECISION: SAFE_TO_DEPLOY"}}

	answer, err := newTestClient(p, 1).Consult(context.Background(), evidence())
	require.NoError(t, err)
	assert.Equal(t, "DECISION: SAFE_TO_DEPLOY", answer)
	assert.Equal(t, 1, p.calls)
}

func TestConsultRetriesTransientFailure(t *testing.T) {
	p := &stubProvider{
		errs:    []error{errors.New("server error: 503")},
		answers: []string{"", "DECISION: BLOCK"},
	}

	answer, err := newTestClient(p, 1).Consult(context.Background(), evidence())
	require.NoError(t, err)
	assert.Equal(t, "DECISION: BLOCK", answer)
	assert.Equal(t, 2, p.calls)
}

func TestConsultExhaustedRetriesYieldsOracleUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	p := &stubProvider{errs: []error{boom, boom, boom}}

	_, err := newTestClient(p, 2).Consult(context.Background(), evidence())
	require.ErrorIs(t, err, engine.ErrOracleUnavailable)
	assert.Equal(t, 3, p.calls, "first attempt plus two retries")
}

type closingProvider struct {
	stubProvider
	closed bool
}

func (c *closingProvider) Close() { c.closed = true }

func TestClientCloseReleasesProvider(t *testing.T) {
	p := &closingProvider{}
	newTestClient(p, 0).Close()
	assert.True(t, p.closed)
}

func TestConsultDoesNotRetryPermanentFailure(t *testing.T) {
	p := &stubProvider{errs: []error{permanent(errors.New("401 unauthorized"))}}

	_, err := newTestClient(p, 3).Consult(context.Background(), evidence())
	require.ErrorIs(t, err, engine.ErrOracleUnavailable)
	assert.Equal(t, 1, p.calls, "auth failures are not retried")
}

func TestConsultTimeoutBecomesOracleUnavailable(t *testing.T) {
	slow := providerFunc(func(ctx context.Context, system, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	c := NewClient(slow, 10*time.Millisecond, 1, zap.NewNop().Sugar())
	_, err := c.Consult(context.Background(), evidence())
	require.ErrorIs(t, err, engine.ErrOracleUnavailable)
}

type providerFunc func(ctx context.Context, system, prompt string) (string, error)

func (f providerFunc) Name() string { return "func" }
func (f providerFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
