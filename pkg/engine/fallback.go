package engine

import "fmt"

// DefaultHighThreshold is the number of high-severity findings tolerated
// before the fallback rules block. Zero means any High blocks.
const DefaultHighThreshold = 0

// FallbackVerdict is the deterministic, rule-based decision used whenever
// the oracle path fails. Pure and total: it never consults the network and
// always returns a Verdict. This is the engine's safety net, so it must
// never fail open.
func FallbackVerdict(rep *AggregatedReport, highThreshold int) Verdict {
	critical := rep.CountBySeverity(SeverityCritical)
	high := rep.CountBySeverity(SeverityHigh)
	medium := rep.CountBySeverity(SeverityMedium)
	lowInfo := rep.CountBySeverity(SeverityLow) + rep.CountBySeverity(SeverityInfo)

	v := Verdict{Source: SourceFallbackRules}

	switch {
	case critical > 0:
		v.Decision = BlockDeployment
		v.RiskLevel = RiskCritical
		v.Reasoning = fmt.Sprintf("Found %d critical security issues including potential secrets or credentials.", critical)
		v.Recommendations = []string{
			"Revoke any exposed secrets immediately and remove them from history.",
			"Re-run the pipeline after the critical findings are resolved.",
		}
	case high > highThreshold:
		v.Decision = BlockDeployment
		v.RiskLevel = RiskHigh
		v.Reasoning = fmt.Sprintf("Found %d high-severity security issues that must be addressed before deployment.", high)
		v.Recommendations = []string{
			"Fix the high-severity findings listed in the report.",
			"Re-run the pipeline after remediation.",
		}
	case medium > 0:
		v.Decision = SafeToDeploy
		v.RiskLevel = RiskMedium
		v.Reasoning = fmt.Sprintf("Approved with warnings: %d medium-severity issues found, no critical or high-severity issues.", medium)
		v.Recommendations = []string{
			"Schedule remediation of the medium-severity findings.",
		}
	case lowInfo > 0:
		v.Decision = SafeToDeploy
		v.RiskLevel = RiskLow
		v.Reasoning = fmt.Sprintf("No significant issues found; %d low-severity or informational findings remain.", lowInfo)
		v.Recommendations = []string{
			"Review low-severity findings during routine maintenance.",
		}
	default:
		v.Decision = SafeToDeploy
		v.RiskLevel = RiskNone
		v.Reasoning = "No security findings reported by any tool."
	}
	return v
}
