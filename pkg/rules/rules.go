// Package rules implements the deterministic threat detectors of the
// analysis pipeline. Detectors are pure functions returning explicit
// (findings, score delta, benign signals) triples that the aggregator sums;
// no detector mutates shared state, and a failure inside one detector never
// aborts the others.
package rules

import (
	"fmt"
	"strings"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/patterns"
	"github.com/quishield/quishield/pkg/payload"
)

// Severity is the qualitative weight class of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Finding is a single detector observation. The findings list is append-only
// and ordered by detector invocation.
type Finding struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// Result is the combined output of one Detect call.
type Result struct {
	Findings      []Finding `json:"findings"`
	ScoreDelta    int       `json:"score_delta"`
	BenignSignals []string  `json:"benign_signals"`
}

func (r *Result) add(f Finding, delta int) {
	r.Findings = append(r.Findings, f)
	r.ScoreDelta += delta
}

func (r *Result) benign(signal string) {
	r.BenignSignals = append(r.BenignSignals, signal)
}

// Engine runs the detector set against one payload.
type Engine struct {
	policy   *config.Policy
	registry *patterns.Registry
}

// NewEngine creates a rule engine bound to a scoring policy.
func NewEngine(policy *config.Policy) *Engine {
	return &Engine{
		policy:   policy,
		registry: patterns.Get(),
	}
}

// weight maps a severity class to its configured score contribution.
func (e *Engine) weight(s Severity) int {
	switch s {
	case SeverityCritical:
		return e.policy.Weights.Critical
	case SeverityHigh:
		return e.policy.Weights.High
	case SeverityMedium:
		return e.policy.Weights.Medium
	case SeverityLow:
		return e.policy.Weights.Low
	default:
		return 0
	}
}

// Detect runs the universal detectors, the type-specific detector, and the
// URL heuristics in order, merging their outputs. Detector panics are
// recovered and reported as an info finding so one broken pattern can never
// take down the pipeline.
func (e *Engine) Detect(text string, t payload.Type, dom *domain.Info) Result {
	var out Result

	detectors := []struct {
		name string
		fn   func(string, payload.Type, *domain.Info) Result
	}{
		{"secrets", e.detectSecrets},
		{"injection", e.detectInjection},
		{"type", e.detectByType},
		{"url", e.detectURL},
	}

	for _, d := range detectors {
		r := runIsolated(d.name, d.fn, text, t, dom)
		out.Findings = append(out.Findings, r.Findings...)
		out.ScoreDelta += r.ScoreDelta
		out.BenignSignals = append(out.BenignSignals, r.BenignSignals...)
	}

	return out
}

// runIsolated executes a detector and converts a panic into a neutral
// finding instead of propagating it.
func runIsolated(name string, fn func(string, payload.Type, *domain.Info) Result, text string, t payload.Type, dom *domain.Info) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = Result{Findings: []Finding{{
				ID:       "detector_failed",
				Title:    "Detector unavailable",
				Severity: SeverityInfo,
				Reason:   fmt.Sprintf("%s detector failed internally and was skipped", name),
			}}}
		}
	}()
	return fn(text, t, dom)
}

// detectSecrets scans any payload for credential material. Exposure is
// unconditionally severe, so the critical weight is contributed once no
// matter how many secret shapes match.
func (e *Engine) detectSecrets(text string, _ payload.Type, _ *domain.Info) Result {
	var out Result
	matched := e.registry.MatchAll(text, patterns.CategorySecret)
	for i, p := range matched {
		delta := 0
		if i == 0 {
			delta = e.weight(SeverityCritical)
		}
		out.add(Finding{
			ID:       p.Name,
			Title:    p.Title,
			Severity: SeverityCritical,
			Reason:   p.Description + " detected in payload",
		}, delta)
	}
	return out
}

// detectInjection scans any payload for injection syntax. One finding per
// matched category; the high weight is contributed once.
func (e *Engine) detectInjection(text string, _ payload.Type, _ *domain.Info) Result {
	var out Result
	first := true
	for _, cat := range patterns.InjectionCategories {
		p := e.registry.MatchAny(text, cat)
		if p == nil {
			continue
		}
		delta := 0
		if first {
			delta = e.weight(SeverityHigh)
			first = false
		}
		out.add(Finding{
			ID:       p.Name,
			Title:    p.Title,
			Severity: SeverityHigh,
			Reason:   p.Description + " detected in payload",
		}, delta)
	}
	return out
}

// detectByType dispatches to the handler for the payload's structural type.
// The dispatch is total: types without threat semantics fall through to an
// empty result.
func (e *Engine) detectByType(text string, t payload.Type, dom *domain.Info) Result {
	switch t {
	case payload.TypeWifi:
		return e.detectWifi(text)
	case payload.TypeSMS, payload.TypeTel, payload.TypeEmail:
		return e.detectActionTrigger(text, t)
	case payload.TypeVCard:
		return e.detectVCard(text)
	case payload.TypeDeeplink:
		return e.detectDeeplink()
	default:
		return Result{}
	}
}

// detectWifi applies the Wi-Fi credential block heuristics: missing
// password, weak encryption, hidden network (evil-twin setups).
func (e *Engine) detectWifi(text string) Result {
	var out Result
	cfg := payload.ParseWifi(text)

	auth := strings.ToLower(cfg.Auth)
	if auth == "nopass" || auth == "" {
		out.add(Finding{
			ID:       "wifi_unsecured",
			Title:    "Unsecured Wi-Fi network",
			Severity: SeverityHigh,
			Reason:   "Network requires no password; traffic can be intercepted by anyone nearby",
		}, e.weight(SeverityHigh))
	} else if !cfg.PasswordPresent {
		out.add(Finding{
			ID:       "wifi_no_password",
			Title:    "Wi-Fi network without password",
			Severity: SeverityHigh,
			Reason:   "Credential block declares an auth type but carries no password",
		}, e.weight(SeverityHigh))
	}

	if strings.EqualFold(cfg.Auth, "WEP") {
		out.add(Finding{
			ID:       "wifi_weak_encryption",
			Title:    "Weak Wi-Fi encryption (WEP)",
			Severity: SeverityMedium,
			Reason:   "WEP is trivially crackable; joining exposes all traffic",
		}, e.weight(SeverityMedium))
	}

	if cfg.Hidden == "true" {
		out.add(Finding{
			ID:       "wifi_hidden_network",
			Title:    "Hidden Wi-Fi network",
			Severity: SeverityMedium,
			Reason:   "Hidden SSIDs are a common evil-twin attack setup",
		}, e.weight(SeverityMedium))
	}

	if len(out.Findings) == 0 {
		out.benign("Wi-Fi configuration uses a modern auth type with a password")
	}
	return out
}

// detectActionTrigger covers sms/tel/email payloads: scanning one can start
// a sensitive action (message, call, mail) on the user's device.
func (e *Engine) detectActionTrigger(text string, t payload.Type) Result {
	var out Result

	action := map[payload.Type]string{
		payload.TypeSMS:   "send an SMS",
		payload.TypeTel:   "start a phone call",
		payload.TypeEmail: "compose an email",
	}[t]

	out.add(Finding{
		ID:       "sensitive_action_" + string(t),
		Title:    "Payload triggers a sensitive action",
		Severity: SeverityLow,
		Reason:   fmt.Sprintf("Scanning this code can %s to an attacker-chosen destination", action),
	}, e.weight(SeverityLow))

	if hits := e.lureHits(text); len(hits) > 0 {
		out.add(Finding{
			ID:       "smishing_keywords",
			Title:    "Smishing/phishing lure keywords",
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("Payload contains lure keywords: %s", strings.Join(hits, ", ")),
		}, e.weight(SeverityMedium))
	}
	return out
}

// detectVCard flags contact-import payloads and surfaces embedded URLs for
// downstream URL analysis.
func (e *Engine) detectVCard(text string) Result {
	var out Result
	out.add(Finding{
		ID:       "vcard_contact_import",
		Title:    "Payload imports contact data",
		Severity: SeverityLow,
		Reason:   "Scanning can add an attacker-controlled contact to the address book",
	}, e.weight(SeverityLow))

	if embedded, ok := payload.ExtractEmbeddedURL(text); ok {
		out.add(Finding{
			ID:       "vcard_embedded_url",
			Title:    "vCard contains embedded URL",
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("Contact card links to %s; the URL is analyzed separately", embedded),
		}, e.weight(SeverityMedium))
	}
	return out
}

// detectDeeplink flags app deep links with a single fixed-weight finding.
func (e *Engine) detectDeeplink() Result {
	var out Result
	out.add(Finding{
		ID:       "deeplink_app_launch",
		Title:    "Payload may open an app directly",
		Severity: SeverityMedium,
		Reason:   "intent:// and market:// links can launch or install applications without a browser",
	}, e.weight(SeverityMedium))
	return out
}

// lureHits returns the configured lure keywords present in text.
func (e *Engine) lureHits(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range e.policy.LureKeywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
