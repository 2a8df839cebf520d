package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/securedeploy/guardrail/pkg/engine"
)

// Output artifact names.
const (
	MarkdownFile = "guardrail-report.md"
	SummaryFile  = "guardrail-summary.json"
)

// Summary is the compact machine-readable signal consumed by the
// orchestrator to decide whether to proceed.
type Summary struct {
	Decision  engine.Decision           `json:"decision"`
	RiskLevel engine.RiskLevel          `json:"risk_level"`
	Source    engine.VerdictSource      `json:"source"`
	Counts    map[string]map[string]int `json:"counts"` // tool -> severity -> count
	Total     int                       `json:"total_findings"`
	Warnings  []string                  `json:"warnings,omitempty"`
	RunID     string                    `json:"run_id"`
	Commit    string                    `json:"commit"`
	Branch    string                    `json:"branch"`
	Timestamp string                    `json:"timestamp"`
}

// Renderer persists the verdict artifacts. The zero value is not usable;
// OutDir must point at the directory the orchestrator collects.
type Renderer struct {
	OutDir string

	// Now is test-overridable; nil means time.Now.
	Now func() time.Time
}

// Render writes the markdown report and JSON summary, then best-effort
// appends the GitHub Actions output variables. Failure to write either
// artifact is the engine's one fatal error.
func (r Renderer) Render(v engine.Verdict, rep *engine.AggregatedReport, meta engine.RunMetadata) (string, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return "", &engine.RenderError{Path: r.OutDir, Err: err}
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	timestamp := now().UTC().Format(time.RFC3339)

	mdPath := filepath.Join(r.OutDir, MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(v, rep, meta, timestamp)), 0o644); err != nil {
		return "", &engine.RenderError{Path: mdPath, Err: err}
	}

	summaryPath := filepath.Join(r.OutDir, SummaryFile)
	data, err := json.MarshalIndent(buildSummary(v, rep, meta, timestamp), "", "  ")
	if err != nil {
		return "", &engine.RenderError{Path: summaryPath, Err: err}
	}
	if err := os.WriteFile(summaryPath, append(data, '\n'), 0o644); err != nil {
		return "", &engine.RenderError{Path: summaryPath, Err: err}
	}

	writeGitHubOutput(map[string]string{
		"decision":    string(v.Decision),
		"risk_level":  string(v.RiskLevel),
		"report_file": mdPath,
	})

	return mdPath, nil
}

func buildSummary(v engine.Verdict, rep *engine.AggregatedReport, meta engine.RunMetadata, timestamp string) Summary {
	counts := make(map[string]map[string]int, len(rep.Counts))
	for tool, perSev := range rep.Counts {
		m := make(map[string]int, len(perSev))
		for sev, n := range perSev {
			m[string(sev)] = n
		}
		counts[string(tool)] = m
	}
	warnings := make([]string, 0, len(rep.Warnings))
	for _, w := range rep.Warnings {
		warnings = append(warnings, w.String())
	}
	return Summary{
		Decision:  v.Decision,
		RiskLevel: v.RiskLevel,
		Source:    v.Source,
		Counts:    counts,
		Total:     rep.TotalFindings,
		Warnings:  warnings,
		RunID:     meta.RunID,
		Commit:    meta.Commit,
		Branch:    meta.Branch,
		Timestamp: timestamp,
	}
}

func renderMarkdown(v engine.Verdict, rep *engine.AggregatedReport, meta engine.RunMetadata, timestamp string) string {
	var b strings.Builder

	banner := "❌"
	if v.Decision == engine.SafeToDeploy {
		banner = "✅"
	}
	fmt.Fprintf(&b, "# %s Security Guardrail Report\n\n", banner)
	fmt.Fprintf(&b, "## Decision: %s\n\n", strings.ReplaceAll(string(v.Decision), "_", " "))
	fmt.Fprintf(&b, "**Risk Level:** %s\n", v.RiskLevel)
	fmt.Fprintf(&b, "**Source:** %s\n", sourceLabel(v.Source))
	fmt.Fprintf(&b, "**Commit:** %s (%s)\n", meta.ShortCommit(), meta.Branch)
	fmt.Fprintf(&b, "**Run:** %s\n", meta.RunID)
	fmt.Fprintf(&b, "**Time:** %s\n\n", timestamp)

	fmt.Fprintf(&b, "## Analysis\n\n### Reasoning\n%s\n", v.Reasoning)
	if len(v.Recommendations) > 0 {
		fmt.Fprintf(&b, "\n### Recommendations\n")
		for _, rec := range v.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	fmt.Fprintf(&b, "\n## Scan Summary\n\n")
	fmt.Fprintf(&b, "| Severity | Count |\n|----------|-------|\n")
	for _, sev := range engine.SeverityOrder {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, rep.CountBySeverity(sev))
	}
	fmt.Fprintf(&b, "| **Total** | **%d** |\n", rep.TotalFindings)

	tools := make([]string, 0, len(rep.ToolsRun))
	for _, t := range rep.ToolsRun {
		tools = append(tools, string(t))
	}
	if len(tools) > 0 {
		fmt.Fprintf(&b, "\n**Tools Run:** %s\n", strings.Join(tools, ", "))
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Degraded Inputs\n\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	writeTier := func(title string, sev engine.Severity, limit int) {
		findings := rep.Top[sev]
		if len(findings) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n### %s\n\n", title)
		shown := findings
		if limit > 0 && len(shown) > limit {
			shown = shown[:limit]
		}
		for _, f := range shown {
			fmt.Fprintf(&b, "- **[%s]** %s\n  - Rule: `%s`\n  - Location: `%s`\n", f.Tool, f.Message, f.RuleID, f.Location())
		}
		if total := rep.CountBySeverity(sev); total > len(shown) {
			fmt.Fprintf(&b, "\n*...and %d more*\n", total-len(shown))
		}
	}

	fmt.Fprintf(&b, "\n## Findings\n")
	writeTier("Critical Issues", engine.SeverityCritical, 0)
	writeTier("High Severity", engine.SeverityHigh, 0)
	writeTier("Medium Severity", engine.SeverityMedium, 3)

	fmt.Fprintf(&b, "\n---\n\n")
	if v.Decision == engine.SafeToDeploy {
		fmt.Fprintf(&b, "✅ **Deployment approved by the security guardrail**\n")
	} else {
		fmt.Fprintf(&b, "❌ **Deployment blocked by the security guardrail**\n\nPlease address the identified issues and push again.\n")
	}
	return b.String()
}

func sourceLabel(s engine.VerdictSource) string {
	if s == engine.SourceFallbackRules {
		return "rule-based fallback"
	}
	return "oracle reasoning"
}

// writeGitHubOutput appends workflow output variables when running under
// GitHub Actions. Best-effort: a missing or unwritable GITHUB_OUTPUT is not
// an error.
func writeGitHubOutput(vars map[string]string) {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	for _, key := range []string{"decision", "risk_level", "report_file"} {
		fmt.Fprintf(f, "%s=%s\n", key, vars[key])
	}
}
