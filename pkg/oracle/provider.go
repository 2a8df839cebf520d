package oracle

import "context"

// Provider is one reasoning backend. Implementations must pin the lowest
// determinism setting the backend supports so repeated runs over identical
// evidence vary as little as possible.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// permanentError marks a failure that must not be retried, such as a bad
// API key or a rejected request body.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent wraps err so the client stops retrying immediately.
func permanent(err error) error {
	return &permanentError{err: err}
}
