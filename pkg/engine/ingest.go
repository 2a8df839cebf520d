package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Artifact file names written by the scanning stage of the pipeline.
const (
	GitleaksArtifact = "gitleaks-report.json"
	SemgrepArtifact  = "semgrep-report.json"
	OPAArtifact      = "opa-report.json"
)

// Shape-level schemas for each artifact. Validation happens before decoding
// so a malformed document is downgraded to a DataQualityWarning instead of a
// half-parsed finding list.
const (
	gitleaksSchema = `{"type":"array","items":{"type":"object"}}`
	semgrepSchema  = `{"type":"object","properties":{"results":{"type":"array","items":{"type":"object"}}},"required":["results"]}`
	opaSchema      = `{"type":"array","items":{"type":"object"}}`
)

// IngestResult is everything the ingestor recovered from one results
// directory: the normalized findings, which tools actually delivered an
// artifact, and any artifacts that had to be discarded.
type IngestResult struct {
	Findings []Finding
	Present  []Tool // tools whose artifact existed, in canonical order
	Warnings []DataQualityWarning
}

// Ingestor reads scanner artifacts from a results directory. A missing
// artifact contributes zero findings and is not an error; a malformed one
// contributes zero findings plus a warning. A single bad input never aborts
// the run.
type Ingestor struct {
	log *zap.SugaredLogger
}

func NewIngestor(log *zap.SugaredLogger) *Ingestor {
	return &Ingestor{log: log}
}

// Ingest reads all three tool artifacts from dir.
func (in *Ingestor) Ingest(dir string) IngestResult {
	var res IngestResult

	type source struct {
		tool   Tool
		file   string
		schema string
		parse  func([]byte) ([]Finding, error)
	}
	sources := []source{
		{ToolGitleaks, GitleaksArtifact, gitleaksSchema, parseGitleaks},
		{ToolOPA, OPAArtifact, opaSchema, parseOPA},
		{ToolSemgrep, SemgrepArtifact, semgrepSchema, parseSemgrep},
	}

	for _, src := range sources {
		path := filepath.Join(dir, src.file)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			in.log.Debugw("artifact absent", "tool", src.tool, "path", path)
			continue
		}
		if err != nil {
			res.Warnings = append(res.Warnings, DataQualityWarning{Tool: src.tool, Reason: fmt.Sprintf("read %s: %v", src.file, err)})
			continue
		}
		res.Present = append(res.Present, src.tool)

		// An empty report file means the tool ran and found nothing.
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}

		if reason, ok := validateArtifact(src.schema, data); !ok {
			in.log.Warnw("artifact rejected", "tool", src.tool, "reason", reason)
			res.Warnings = append(res.Warnings, DataQualityWarning{Tool: src.tool, Reason: reason})
			continue
		}

		findings, err := src.parse(data)
		if err != nil {
			res.Warnings = append(res.Warnings, DataQualityWarning{Tool: src.tool, Reason: fmt.Sprintf("parse %s: %v", src.file, err)})
			continue
		}
		in.log.Debugw("artifact ingested", "tool", src.tool, "findings", len(findings))
		res.Findings = append(res.Findings, findings...)
	}

	return res
}

// validateArtifact checks the document against the tool's shape schema.
// Returns a human-readable reason when the document is unusable.
func validateArtifact(schema string, data []byte) (string, bool) {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Sprintf("invalid JSON: %v", err), false
	}
	if !result.Valid() {
		if errs := result.Errors(); len(errs) > 0 {
			return fmt.Sprintf("schema violation: %s", errs[0]), false
		}
		return "schema violation", false
	}
	return "", true
}

type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Secret      string `json:"Secret"`
	RuleID      string `json:"RuleID"`
	Match       string `json:"Match"`
}

func parseGitleaks(data []byte) ([]Finding, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(items))
	for _, raw := range items {
		var gl gitleaksFinding
		if err := json.Unmarshal(raw, &gl); err != nil {
			return nil, err
		}
		msg := gl.Description
		if msg == "" {
			msg = "Secret detected"
		}
		findings = append(findings, Finding{
			Tool:    ToolGitleaks,
			RuleID:  gl.RuleID,
			Message: msg,
			File:    gl.File,
			Line:    gl.StartLine,
			Raw:     raw,
		})
	}
	return findings, nil
}

type semgrepReport struct {
	Results []json.RawMessage `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
	} `json:"start"`
	Extra struct {
		Message  string `json:"message"`
		Severity string `json:"severity"` // ERROR | WARNING | INFO
	} `json:"extra"`
}

func parseSemgrep(data []byte) ([]Finding, error) {
	var report semgrepReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(report.Results))
	for _, raw := range report.Results {
		var r semgrepResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		msg := r.Extra.Message
		if msg == "" {
			msg = "Security issue detected"
		}
		findings = append(findings, Finding{
			Tool:           ToolSemgrep,
			RuleID:         r.CheckID,
			NativeSeverity: r.Extra.Severity,
			Message:        msg,
			File:           filepath.ToSlash(r.Path),
			Line:           r.Start.Line,
			Raw:            raw,
		})
	}
	return findings, nil
}

type opaResult struct {
	Filename string `json:"filename"`
	Failures []struct {
		Msg string `json:"msg"`
	} `json:"failures"`
	Warnings []struct {
		Msg string `json:"msg"`
	} `json:"warnings"`
}

func parseOPA(data []byte) ([]Finding, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, raw := range items {
		var r opaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		file := r.Filename
		if file == "" {
			file = "infrastructure"
		}
		for _, f := range r.Failures {
			msg := f.Msg
			if msg == "" {
				msg = "Policy violation detected"
			}
			findings = append(findings, Finding{
				Tool:           ToolOPA,
				RuleID:         "policy-enforcement",
				NativeSeverity: "deny",
				Message:        msg,
				File:           file,
				Raw:            raw,
			})
		}
		for _, w := range r.Warnings {
			msg := w.Msg
			if msg == "" {
				msg = "Policy warning"
			}
			findings = append(findings, Finding{
				Tool:           ToolOPA,
				RuleID:         "policy-warning",
				NativeSeverity: "warn",
				Message:        msg,
				File:           file,
				Raw:            raw,
			})
		}
	}
	return findings, nil
}
