package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/securedeploy/guardrail/pkg/engine"
)

// Client defaults.
const (
	DefaultTimeout = 60 * time.Second
	DefaultRetries = 1
)

// Client is the reasoning client: it submits the evidence payload under a
// timeout/retry budget and reports either the oracle's raw answer or
// engine.ErrOracleUnavailable. It never panics and never surfaces a raw
// transport error.
type Client struct {
	provider Provider
	timeout  time.Duration
	retries  int
	log      *zap.SugaredLogger
}

// NewClient wraps a provider with the call budget. retries is the number of
// additional attempts after the first; negative means the default single
// retry.
func NewClient(provider Provider, timeout time.Duration, retries int, log *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Client{provider: provider, timeout: timeout, retries: retries, log: log}
}

// Consult submits the evidence and returns the raw answer. Transient
// failures (timeout, server error) are retried within the budget;
// authentication and malformed-request failures are not.
func (c *Client) Consult(ctx context.Context, evidence engine.EvidencePayload) (string, error) {
	var lastErr error
	attempts := c.retries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		answer, err := c.provider.Complete(callCtx, SystemPrompt(), evidence.Text)
		cancel()

		if err == nil {
			return answer, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			c.log.Warnw("oracle rejected request, not retrying", "provider", c.provider.Name(), "error", err)
			break
		}
		c.log.Warnw("oracle call failed", "provider", c.provider.Name(), "attempt", attempt, "error", err)
	}

	return "", fmt.Errorf("%w: %v", engine.ErrOracleUnavailable, lastErr)
}

// Close releases the underlying provider's resources, if it holds any.
func (c *Client) Close() {
	if closer, ok := c.provider.(interface{ Close() }); ok {
		closer.Close()
	}
}
