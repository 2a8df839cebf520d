package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/securedeploy/guardrail/pkg/engine"
)

func TestGeminiErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"bad api key", &googleapi.Error{Code: 401, Message: "API key not valid"}, true},
		{"forbidden", &googleapi.Error{Code: 403, Message: "permission denied"}, true},
		{"malformed request", &googleapi.Error{Code: 400, Message: "invalid argument"}, true},
		{"rate limited", &googleapi.Error{Code: 429, Message: "quota exceeded"}, false},
		{"server error", &googleapi.Error{Code: 500, Message: "internal"}, false},
		{"transport failure", errors.New("connection reset"), false},
		{"wrapped api error", fmt.Errorf("call: %w", &googleapi.Error{Code: 404, Message: "model not found"}), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classified := geminiError(tc.err)

			var perm *permanentError
			assert.Equal(t, tc.permanent, errors.As(classified, &perm))
			assert.ErrorContains(t, classified, "gemini:")
		})
	}
}

func TestGeminiAuthFailureIsPermanent(t *testing.T) {
	p := &stubProvider{
		errs: []error{geminiError(&googleapi.Error{Code: 401, Message: "API key not valid"})},
	}

	_, err := newTestClient(p, 1).Consult(context.Background(), evidence())
	require.ErrorIs(t, err, engine.ErrOracleUnavailable)
	assert.Equal(t, 1, p.calls, "auth failure must not be retried")
}
