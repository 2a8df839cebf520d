package engine

import (
	"strings"

	"go.uber.org/zap"
)

// Decision is the engine's final call for a run.
type Decision string

const (
	SafeToDeploy    Decision = "SAFE_TO_DEPLOY"
	BlockDeployment Decision = "BLOCK_DEPLOYMENT"
)

// RiskLevel grades the residual risk behind a decision.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// VerdictSource records which path produced the verdict, for auditability.
type VerdictSource string

const (
	SourceOracleReasoning VerdictSource = "oracle_reasoning"
	SourceFallbackRules   VerdictSource = "fallback_rules"
)

// Verdict is the terminal artifact of one run.
type Verdict struct {
	Decision        Decision      `json:"decision"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	Reasoning       string        `json:"reasoning"`
	Recommendations []string      `json:"recommendations"`
	Source          VerdictSource `json:"source"`
}

// decisionSynonyms normalizes the wording oracles actually produce.
var decisionSynonyms = map[string]Decision{
	"SAFE_TO_DEPLOY": SafeToDeploy,
	"SAFE TO DEPLOY": SafeToDeploy,
	"SAFE":           SafeToDeploy,
	"APPROVE":        SafeToDeploy,
	"APPROVED":       SafeToDeploy,
	"ALLOW":          SafeToDeploy,

	"BLOCK_DEPLOYMENT": BlockDeployment,
	"BLOCK DEPLOYMENT": BlockDeployment,
	"BLOCK":            BlockDeployment,
	"BLOCKED":          BlockDeployment,
	"DENY":             BlockDeployment,
	"REJECT":           BlockDeployment,
}

var riskSynonyms = map[string]RiskLevel{
	"NONE":     RiskNone,
	"LOW":      RiskLow,
	"MEDIUM":   RiskMedium,
	"MODERATE": RiskMedium,
	"HIGH":     RiskHigh,
	"CRITICAL": RiskCritical,
}

// answer section headers, matched case-insensitively by line prefix.
var sectionHeaders = []string{"DECISION:", "RISK LEVEL:", "REASONING:", "RECOMMENDATIONS:"}

// ParseVerdict extracts a Verdict from the oracle's semi-structured answer.
// A missing or unrecognized decision label is fatal to the parse; an
// unrecognized risk level is logged and treated as an absent section.
func ParseVerdict(answer string, log *zap.SugaredLogger) (Verdict, error) {
	sections := splitSections(answer)

	decisionText, ok := sections["DECISION:"]
	if !ok {
		return Verdict{}, &VerdictParseError{Reason: "no DECISION section in answer"}
	}
	decision, ok := normalizeDecision(decisionText)
	if !ok {
		return Verdict{}, &VerdictParseError{Reason: "unrecognized decision: " + firstLine(decisionText)}
	}

	risk, ok := normalizeRisk(sections["RISK LEVEL:"])
	if !ok {
		if text := sections["RISK LEVEL:"]; text != "" {
			log.Warnw("unrecognized risk level in oracle answer", "value", firstLine(text))
		}
		// Absent or unusable risk section: grade conservatively from the
		// decision itself.
		risk = RiskLow
		if decision == BlockDeployment {
			risk = RiskHigh
		}
	}

	v := Verdict{
		Decision:        decision,
		RiskLevel:       risk,
		Reasoning:       strings.TrimSpace(sections["REASONING:"]),
		Recommendations: parseRecommendations(sections["RECOMMENDATIONS:"]),
		Source:          SourceOracleReasoning,
	}
	return v, nil
}

// splitSections carves the answer into labeled sections. Content of a
// section runs until the next header or end of text.
func splitSections(answer string) map[string]string {
	sections := make(map[string]string)
	current := ""
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		matched := false
		for _, header := range sectionHeaders {
			if strings.HasPrefix(upper, header) {
				flush()
				current = header
				body.WriteString(strings.TrimSpace(trimmed[len(header):]))
				body.WriteString("\n")
				matched = true
				break
			}
		}
		if !matched && current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

func normalizeDecision(text string) (Decision, bool) {
	d, ok := decisionSynonyms[cleanLabel(text)]
	return d, ok
}

func normalizeRisk(text string) (RiskLevel, bool) {
	r, ok := riskSynonyms[cleanLabel(text)]
	return r, ok
}

// cleanLabel reduces a section's first line to a comparable label: upper
// case, brackets and surrounding punctuation stripped.
func cleanLabel(text string) string {
	label := strings.ToUpper(firstLine(text))
	label = strings.Trim(label, "[]()*\"'`.! ")
	return label
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}

// parseRecommendations collects the bullet lines of the recommendations
// section, preserving order. Bullet markers are stripped; plain lines are
// kept as-is.
func parseRecommendations(text string) []string {
	var recs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line != "" {
			recs = append(recs, line)
		}
	}
	return recs
}
