package engine

import (
	"errors"
	"fmt"
)

// ErrOracleUnavailable is returned by the reasoning client once its retry
// budget is exhausted. It always routes the run to the fallback rules.
var ErrOracleUnavailable = errors.New("reasoning oracle unavailable")

// DataQualityWarning records a scanner artifact that was present but could
// not be used. Non-fatal: the run continues with the remaining tools.
type DataQualityWarning struct {
	Tool   Tool
	Reason string
}

func (w DataQualityWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Tool, w.Reason)
}

// VerdictParseError means the oracle answered but the answer could not be
// mapped to a Verdict. Non-fatal: triggers the fallback rules.
type VerdictParseError struct {
	Reason string
}

func (e *VerdictParseError) Error() string {
	return "verdict parse: " + e.Reason
}

// RenderError means the final report artifacts could not be written. This is
// the one fatal failure in the engine: it is surfaced to the caller instead
// of being folded into a security verdict.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
