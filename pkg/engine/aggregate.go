package engine

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultPerTierCap bounds how many findings per severity tier are carried
// into the evidence payload. Counts are never truncated, only the sample.
const DefaultPerTierCap = 5

// Classifier maps each tool's native severity vocabulary onto the shared
// taxonomy via a fixed table. Secret findings carry no native severity and
// are always Critical.
type Classifier struct {
	table map[Tool]map[string]Severity
}

func defaultTable() map[Tool]map[string]Severity {
	return map[Tool]map[string]Severity{
		ToolGitleaks: {
			"": SeverityCritical,
		},
		ToolSemgrep: {
			"error":   SeverityHigh,
			"warning": SeverityMedium,
			"info":    SeverityLow,
		},
		ToolOPA: {
			"deny": SeverityHigh,
			"warn": SeverityMedium,
		},
	}
}

// NewClassifier builds the classifier from the built-in table plus optional
// overrides keyed "tool.native" (for example "semgrep.error": "critical").
func NewClassifier(overrides map[string]string) (*Classifier, error) {
	table := defaultTable()
	for key, val := range overrides {
		tool, native, found := strings.Cut(key, ".")
		if !found {
			return nil, fmt.Errorf("severity override %q: want tool.native", key)
		}
		sev, err := ParseSeverity(val)
		if err != nil {
			return nil, fmt.Errorf("severity override %q: %w", key, err)
		}
		entry, ok := table[Tool(tool)]
		if !ok {
			return nil, fmt.Errorf("severity override %q: unknown tool", key)
		}
		entry[strings.ToLower(native)] = sev
	}
	return &Classifier{table: table}, nil
}

// Classify returns a copy of f with the taxonomy severity assigned.
// Unknown native severities land on Low rather than vanishing.
func (c *Classifier) Classify(f Finding) Finding {
	entry := c.table[f.Tool]
	sev, ok := entry[strings.ToLower(strings.TrimSpace(f.NativeSeverity))]
	if !ok {
		sev = SeverityLow
	}
	f.Severity = sev
	return f
}

// AggregatedReport is the fixed snapshot one run decides on. Counts cover
// every finding; Top holds the bounded per-tier sample shown to the oracle.
// Never mutated after Aggregate returns.
type AggregatedReport struct {
	Counts        map[Tool]map[Severity]int
	Top           map[Severity][]Finding
	TotalFindings int
	ToolsRun      []Tool
	Warnings      []DataQualityWarning
}

// CountBySeverity sums a tier's count across all tools.
func (r *AggregatedReport) CountBySeverity(sev Severity) int {
	total := 0
	for _, perSev := range r.Counts {
		total += perSev[sev]
	}
	return total
}

// Aggregate classifies every ingested finding and produces the report.
// Ordering is deterministic: severity descending, then tool name ascending,
// then original artifact order. perTierCap <= 0 means the default cap.
func Aggregate(res IngestResult, c *Classifier, perTierCap int) *AggregatedReport {
	if perTierCap <= 0 {
		perTierCap = DefaultPerTierCap
	}

	classified := make([]Finding, len(res.Findings))
	for i, f := range res.Findings {
		classified[i] = c.Classify(f)
	}

	// Stable sort keeps original artifact order as the final tiebreaker.
	sort.SliceStable(classified, func(i, j int) bool {
		if classified[i].Severity.Rank() != classified[j].Severity.Rank() {
			return classified[i].Severity.Rank() > classified[j].Severity.Rank()
		}
		return classified[i].Tool < classified[j].Tool
	})

	rep := &AggregatedReport{
		Counts:   make(map[Tool]map[Severity]int),
		Top:      make(map[Severity][]Finding),
		ToolsRun: res.Present,
		Warnings: res.Warnings,
	}
	for _, f := range classified {
		perSev := rep.Counts[f.Tool]
		if perSev == nil {
			perSev = make(map[Severity]int)
			rep.Counts[f.Tool] = perSev
		}
		perSev[f.Severity]++
		rep.TotalFindings++

		if len(rep.Top[f.Severity]) < perTierCap {
			rep.Top[f.Severity] = append(rep.Top[f.Severity], f)
		}
	}
	return rep
}
