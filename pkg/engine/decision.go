package engine

import (
	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/ml"
	"github.com/quishield/quishield/pkg/payload"
)

// modelAssessment is the score contribution and confidence derived from
// the statistical verdict and the rule score together.
type modelAssessment struct {
	delta     int
	confident bool
}

// assessModel maps the model probability onto the confidence zones.
// Confidence is a joint property: even a certain-looking benign probability
// is not trusted when the deterministic rules already found enough to cross
// the suspicious floor, because the lexical model only sees the URL's shape
// while the rules see its substance.
func assessModel(p *config.Policy, v *ml.Verdict, ruleDelta int) modelAssessment {
	if v == nil {
		return modelAssessment{}
	}

	var a modelAssessment
	switch {
	case v.Probability >= p.HighConf:
		a = modelAssessment{delta: p.MLConfidentWeight, confident: true}
	case v.Probability <= p.LowConf:
		a = modelAssessment{delta: 0, confident: true}
	case v.Probability >= v.Threshold:
		a = modelAssessment{delta: p.GrayAboveWeight, confident: false}
	default:
		a = modelAssessment{delta: p.GrayBelowWeight, confident: false}
	}

	if ruleDelta >= p.SuspiciousFloor {
		a.confident = false
	}
	return a
}

// needsOracle decides when the advisory LLM is consulted. URL payloads
// escalate only when the statistical scorer is missing or unsure; every
// other non-empty type always escalates, because the pipeline has no model
// for them at all.
func needsOracle(t payload.Type, hasScorer bool, a modelAssessment) bool {
	switch t {
	case payload.TypeEmpty:
		return false
	case payload.TypeURL:
		return !hasScorer || !a.confident
	default:
		return true
	}
}

// needsEvidence decides when a capture is scheduled: URL targets off the
// allowlist that either the rules or the model consider suspicious.
func needsEvidence(p *config.Policy, dom *domain.Info, ruleDelta int, v *ml.Verdict) bool {
	if dom == nil || dom.Host == "" || dom.Allowlisted {
		return false
	}
	if ruleDelta >= p.SuspiciousFloor {
		return true
	}
	return v != nil && v.Suspicious()
}
