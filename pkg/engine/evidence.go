package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Evidence payload defaults.
const (
	DefaultMessageLimit  = 300  // characters kept per finding message
	DefaultEvidenceLimit = 8192 // hard ceiling on the whole payload, bytes
)

// RunMetadata identifies the change under review.
type RunMetadata struct {
	Repository string
	Branch     string
	Commit     string
	RunID      string
}

// ShortCommit returns the familiar 8-character commit prefix.
func (m RunMetadata) ShortCommit() string {
	if len(m.Commit) > 8 {
		return m.Commit[:8]
	}
	return m.Commit
}

// EvidenceOptions bound the payload size.
type EvidenceOptions struct {
	MessageLimit  int // per-finding message cap, characters
	EvidenceLimit int // total payload cap, bytes
}

// EvidencePayload is the bounded summary submitted to the reasoning oracle.
type EvidencePayload struct {
	Text string
}

// ComposeEvidence renders the aggregated report and run metadata into the
// oracle's input. Pure: identical report and metadata always produce an
// identical payload.
func ComposeEvidence(rep *AggregatedReport, meta RunMetadata, opts EvidenceOptions) EvidencePayload {
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = DefaultMessageLimit
	}
	if opts.EvidenceLimit <= 0 {
		opts.EvidenceLimit = DefaultEvidenceLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following security scan results and make a deployment decision.\n\n")
	fmt.Fprintf(&b, "DEPLOYMENT CONTEXT:\n")
	fmt.Fprintf(&b, "- Repository: %s\n", meta.Repository)
	fmt.Fprintf(&b, "- Branch: %s\n", meta.Branch)
	fmt.Fprintf(&b, "- Commit: %s\n", meta.ShortCommit())
	fmt.Fprintf(&b, "- Run: %s\n", meta.RunID)

	fmt.Fprintf(&b, "\nSECURITY SCAN SUMMARY:\n")
	fmt.Fprintf(&b, "- Tools Run: %s\n", toolList(rep.ToolsRun))
	fmt.Fprintf(&b, "- Total Issues: %d\n", rep.TotalFindings)
	for _, sev := range SeverityOrder {
		fmt.Fprintf(&b, "- %s: %d\n", strings.ToUpper(string(sev)), rep.CountBySeverity(sev))
	}
	for _, w := range rep.Warnings {
		fmt.Fprintf(&b, "- Degraded input: %s\n", w)
	}

	writeTier := func(label string, sev Severity) {
		findings := rep.Top[sev]
		if len(findings) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", label)
		for _, f := range findings {
			fmt.Fprintf(&b, "- [%s] %s\n  Rule: %s, Location: %s\n",
				f.Tool, truncate(f.Message, opts.MessageLimit), f.RuleID, f.Location())
		}
	}
	writeTier("CRITICAL ISSUES", SeverityCritical)
	writeTier("HIGH SEVERITY ISSUES", SeverityHigh)

	if n := rep.CountBySeverity(SeverityMedium); n > 0 {
		fmt.Fprintf(&b, "\nMEDIUM SEVERITY: %d issues found\n", n)
		if sample := rep.Top[SeverityMedium]; len(sample) > 0 {
			fmt.Fprintf(&b, "Example: %s\n", truncate(sample[0].Message, opts.MessageLimit))
		}
	}
	if n := rep.CountBySeverity(SeverityLow) + rep.CountBySeverity(SeverityInfo); n > 0 {
		fmt.Fprintf(&b, "\nLOW SEVERITY: %d issues found\n", n)
	}

	b.WriteString(decisionCriteria)

	text := b.String()
	if len(text) > opts.EvidenceLimit {
		// Back up to a rune boundary so the cut never emits invalid UTF-8.
		n := opts.EvidenceLimit
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	return EvidencePayload{Text: text}
}

const decisionCriteria = `
DECISION CRITERIA:
1. BLOCK deployment if there are ANY critical issues (secrets, credentials)
2. BLOCK deployment if there are high-severity issues that pose immediate security risks
3. APPROVE WITH WARNINGS if only medium/low severity issues exist
4. APPROVE if no significant issues are found

Provide your analysis in this EXACT format:

DECISION: [SAFE_TO_DEPLOY or BLOCK_DEPLOYMENT]

RISK LEVEL: [NONE, LOW, MEDIUM, HIGH, CRITICAL]

REASONING:
[2-3 sentences explaining your decision based on the findings]

RECOMMENDATIONS:
[Bullet points with specific remediation steps if blocking, or best practices if approving]
`

func toolList(tools []Tool) string {
	if len(tools) == 0 {
		return "none"
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
