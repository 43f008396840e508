package engine

import (
	"fmt"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/ml"
	"github.com/quishield/quishield/pkg/oracle"
	"github.com/quishield/quishield/pkg/rules"
)

// clampScore bounds the summed deltas to the reportable range before band
// lookup. Allowlist bonuses can push below zero and stacked findings far
// above one hundred; neither extreme carries extra meaning.
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// band maps a clamped score to (category, action) under the configured
// labeling profile. The thresholds and actions are profile-independent;
// only the labels differ.
func band(cfg *config.Config, score int) (string, string) {
	severity := cfg.Banding == config.ProfileSeverity
	b := cfg.Policy.Banding

	switch {
	case score >= b.Critical:
		return "CRITICAL", ActionBlock
	case score >= b.Malicious:
		if severity {
			return "HIGH", ActionBlock
		}
		return "MALICIOUS", ActionBlock
	case score >= b.Suspicious:
		if severity {
			return "MEDIUM", ActionSandbox
		}
		return "SUSPICIOUS", ActionSandbox
	default:
		if severity {
			return "LOW", ActionAllow
		}
		return "SAFE", ActionAllow
	}
}

// buildReasons assembles the explanation list in fixed order: rule findings
// first, then the model's view, then the oracle's advice. The order is part
// of the output contract so the top reason is always the most deterministic
// one.
func buildReasons(findings []rules.Finding, v *ml.Verdict, adv *oracle.Advisory) []string {
	reasons := make([]string, 0, len(findings)+2)
	for _, f := range findings {
		reasons = append(reasons, fmt.Sprintf("[%s] %s: %s", f.Severity, f.Title, f.Reason))
	}

	if v != nil {
		reasons = append(reasons, fmt.Sprintf(
			"URL model (%s) rates this %s (p=%.2f, threshold %.2f)",
			v.Backend, v.Label, v.Probability, v.Threshold))
	}

	if adv != nil && !adv.Unavailable {
		reasons = append(reasons, "Advisory: "+adv.Summary)
		if adv.Recommendation != "" {
			reasons = append(reasons, "Advisory: "+adv.Recommendation)
		}
	}
	return reasons
}
