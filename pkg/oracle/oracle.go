// Package oracle consults an LLM for a second opinion on payloads the
// deterministic pipeline cannot assess with confidence. The oracle is
// strictly advisory: its text is attached to the result for a human reader
// and never feeds back into the risk score or the recommended action.
package oracle

import (
	"context"
	"regexp"
	"strings"

	"github.com/quishield/quishield/pkg/config"
)

// Unavailable is the fixed advisory summary used whenever the oracle
// cannot answer. Callers and tests match on it verbatim.
const Unavailable = "analysis unavailable"

// Advisory is the oracle's human-readable assessment of one payload.
type Advisory struct {
	Summary           string   `json:"summary"`
	SuspiciousSignals []string `json:"suspicious_signals,omitempty"`
	BenignSignals     []string `json:"benign_signals,omitempty"`
	Recommendation    string   `json:"recommendation,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	Unavailable       bool     `json:"unavailable"`
}

// Consultant produces advisories. Implementations must never return an
// error for operational failures; they return an unavailable advisory so
// the analysis pipeline never blocks or fails on the oracle.
type Consultant interface {
	Consult(ctx context.Context, payloadText, payloadType string) *Advisory
	Name() string
}

// unavailableAdvisory is what every failure path collapses to.
func unavailableAdvisory(provider string) *Advisory {
	return &Advisory{
		Summary:     Unavailable,
		Provider:    provider,
		Unavailable: true,
	}
}

// Noop is the consultant used when no oracle is configured.
type Noop struct{}

func (Noop) Consult(ctx context.Context, payloadText, payloadType string) *Advisory {
	return unavailableAdvisory("none")
}

func (Noop) Name() string { return "none" }

// FromConfig builds the configured consultant chain: redis-cached LLM
// client when a provider is set, Noop otherwise.
func FromConfig(cfg *config.Config) Consultant {
	if cfg.OracleProvider == config.OracleNone || cfg.OracleProvider == "" {
		return Noop{}
	}
	var c Consultant = NewClient(cfg)
	if cfg.RedisAddr != "" {
		c = NewCachedConsultant(c, cfg.RedisAddr, cfg.AdvisoryCacheTTL)
	}
	return c
}

// Score-shaped fragments the models sometimes emit despite instructions.
// Numeric verdicts would read as authoritative next to the real risk
// score, so they are stripped before the advisory leaves this package.
var (
	scoreFragmentRe = regexp.MustCompile(`(?i)\b(?:risk|threat|confidence)?\s*score[:\s]*\d+(?:\.\d+)?(?:\s*/\s*\d+)?%?`)
	ratingRe        = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:/|out of)\s*(?:10|100)\b`)
	leadingLabelRe  = regexp.MustCompile(`(?i)^\s*(?:verdict|label|classification)\s*[:=]\s*(?:malicious|benign|suspicious|safe)\s*\.?\s*`)
)

// sanitizeAdvice removes numeric verdict fragments from free text.
func sanitizeAdvice(s string) string {
	s = scoreFragmentRe.ReplaceAllString(s, "")
	s = ratingRe.ReplaceAllString(s, "")
	s = leadingLabelRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func sanitizeAll(items []string) []string {
	out := items[:0]
	for _, item := range items {
		if clean := sanitizeAdvice(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
