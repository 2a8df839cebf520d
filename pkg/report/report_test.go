package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedeploy/guardrail/pkg/engine"
)

func sampleVerdict() engine.Verdict {
	return engine.Verdict{
		Decision:        engine.BlockDeployment,
		RiskLevel:       engine.RiskCritical,
		Reasoning:       "A live credential is present in the diff.",
		Recommendations: []string{"Revoke the key", "Scrub git history"},
		Source:          engine.SourceFallbackRules,
	}
}

func sampleReport() *engine.AggregatedReport {
	return &engine.AggregatedReport{
		Counts: map[engine.Tool]map[engine.Severity]int{
			engine.ToolGitleaks: {engine.SeverityCritical: 1},
			engine.ToolSemgrep:  {engine.SeverityMedium: 4},
		},
		Top: map[engine.Severity][]engine.Finding{
			engine.SeverityCritical: {
				{Tool: engine.ToolGitleaks, RuleID: "aws-key", Message: "AWS access key", File: "prod.env", Line: 3},
			},
			engine.SeverityMedium: {
				{Tool: engine.ToolSemgrep, RuleID: "weak-hash", Message: "MD5 in use", File: "auth.go", Line: 9},
			},
		},
		TotalFindings: 5,
		ToolsRun:      []engine.Tool{engine.ToolGitleaks, engine.ToolSemgrep},
		Warnings:      []engine.DataQualityWarning{{Tool: engine.ToolOPA, Reason: "invalid JSON"}},
	}
}

func sampleMeta() engine.RunMetadata {
	return engine.RunMetadata{
		Repository: "acme/shop",
		Branch:     "main",
		Commit:     "0123456789abcdef",
		RunID:      "run-42",
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

func TestRenderWritesBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	r := Renderer{OutDir: dir, Now: fixedNow}

	path, err := r.Render(sampleVerdict(), sampleReport(), sampleMeta())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MarkdownFile), path)

	md, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(md)
	assert.Contains(t, text, "## Decision: BLOCK DEPLOYMENT")
	assert.Contains(t, text, "**Risk Level:** CRITICAL")
	assert.Contains(t, text, "rule-based fallback")
	assert.Contains(t, text, "| critical | 1 |")
	assert.Contains(t, text, "AWS access key")
	assert.Contains(t, text, "opa: invalid JSON")
	assert.Contains(t, text, "Deployment blocked")

	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, engine.BlockDeployment, summary.Decision)
	assert.Equal(t, engine.RiskCritical, summary.RiskLevel)
	assert.Equal(t, engine.SourceFallbackRules, summary.Source)
	assert.Equal(t, 1, summary.Counts["gitleaks"]["critical"])
	assert.Equal(t, 4, summary.Counts["semgrep"]["medium"])
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, "run-42", summary.RunID)
	assert.Equal(t, "2026-03-14T15:09:26Z", summary.Timestamp)
}

func TestRenderFailureIsRenderError(t *testing.T) {
	dir := t.TempDir()
	// Occupy the markdown path with a directory so the write fails.
	require.NoError(t, os.Mkdir(filepath.Join(dir, MarkdownFile), 0o755))

	r := Renderer{OutDir: dir}
	_, err := r.Render(sampleVerdict(), sampleReport(), sampleMeta())

	var re *engine.RenderError
	require.ErrorAs(t, err, &re)
}

func TestRenderAppendsGitHubOutput(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "github-output")
	t.Setenv("GITHUB_OUTPUT", outFile)

	r := Renderer{OutDir: dir, Now: fixedNow}
	path, err := r.Render(sampleVerdict(), sampleReport(), sampleMeta())
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decision=BLOCK_DEPLOYMENT\n")
	assert.Contains(t, string(data), "risk_level=CRITICAL\n")
	assert.Contains(t, string(data), "report_file="+path+"\n")
}

func TestRenderWithoutGitHubOutputIsFine(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")
	r := Renderer{OutDir: t.TempDir(), Now: fixedNow}
	_, err := r.Render(sampleVerdict(), sampleReport(), sampleMeta())
	assert.NoError(t, err)
}

func TestRenderApprovedBanner(t *testing.T) {
	v := engine.Verdict{
		Decision:  engine.SafeToDeploy,
		RiskLevel: engine.RiskNone,
		Reasoning: "No findings.",
		Source:    engine.SourceOracleReasoning,
	}
	rep := &engine.AggregatedReport{
		Counts: map[engine.Tool]map[engine.Severity]int{},
		Top:    map[engine.Severity][]engine.Finding{},
	}

	r := Renderer{OutDir: t.TempDir(), Now: fixedNow}
	path, err := r.Render(v, rep, sampleMeta())
	require.NoError(t, err)

	md, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Deployment approved")
	assert.Contains(t, string(md), "oracle reasoning")
}
