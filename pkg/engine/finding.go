package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tool identifies which scanner produced a finding.
type Tool string

const (
	ToolGitleaks Tool = "gitleaks" // secret detection
	ToolSemgrep  Tool = "semgrep"  // static code analysis
	ToolOPA      Tool = "opa"      // policy-as-code (conftest)
)

// Severity is the shared taxonomy every tool's native vocabulary maps onto.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityOrder is every tier from most to least severe.
var SeverityOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank returns an integer for comparison (Critical=5 .. Info=1, unknown=0).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a taxonomy severity case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, nil
	case "high":
		return SeverityHigh, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	case "info", "informational":
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("invalid severity: %q", s)
	}
}

// Finding is a single normalized observation from one security tool.
// Immutable once created; Severity is assigned by the classifier from
// NativeSeverity and never changes afterward.
type Finding struct {
	Tool           Tool            `json:"tool"`
	RuleID         string          `json:"rule_id"`
	Severity       Severity        `json:"severity"`
	NativeSeverity string          `json:"native_severity,omitempty"` // tool vocabulary, empty for gitleaks
	Message        string          `json:"message"`
	File           string          `json:"file"`
	Line           int             `json:"line,omitempty"` // 1-based, 0 = unknown
	Raw            json.RawMessage `json:"-"`              // original tool payload, audit only
}

// Location renders file:line for reports, tolerating a missing line.
func (f Finding) Location() string {
	if f.File == "" {
		return "unknown"
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}
