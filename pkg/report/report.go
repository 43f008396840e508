// Package report renders analysis results as markdown for the CLI and for
// attaching to tickets. JSON output stays in the engine; this is the
// human-facing view.
package report

import (
	"fmt"
	"strings"

	"github.com/quishield/quishield/pkg/engine"
)

// Markdown renders one analysis result as a markdown document.
func Markdown(res *engine.Result) string {
	var b strings.Builder

	b.WriteString("# QR Payload Analysis\n\n")
	b.WriteString(fmt.Sprintf("**Report:** %s\n", res.ReportID))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", res.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString(fmt.Sprintf("**Payload type:** %s\n\n", res.Type))

	b.WriteString("## Decision\n\n")
	b.WriteString(fmt.Sprintf("**Risk score:** %d/100\n", res.Decision.RiskScore))
	b.WriteString(fmt.Sprintf("**Category:** %s\n", res.Decision.Category))
	b.WriteString(fmt.Sprintf("**Recommended action:** %s\n\n", res.Decision.RecommendedAction))

	if res.DomainInfo != nil && res.DomainInfo.Host != "" {
		d := res.DomainInfo
		b.WriteString("## Target\n\n")
		b.WriteString("| Host | Scheme | Resolvable | Allowlisted | Shortener |\n")
		b.WriteString("|------|--------|------------|-------------|-----------|\n")
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %v | %v |\n\n",
			d.Host, d.Scheme, d.Resolvable, d.Allowlisted, d.IsShortener))
	}

	b.WriteString("## Findings\n\n")
	if len(res.Findings) > 0 {
		b.WriteString("| Severity | Finding | Reason |\n")
		b.WriteString("|----------|---------|--------|\n")
		for _, f := range res.Findings {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				strings.ToUpper(string(f.Severity)), f.Title, escapeCell(f.Reason)))
		}
	} else {
		b.WriteString("None.\n")
	}
	b.WriteString("\n")

	if len(res.BenignSignals) > 0 {
		b.WriteString("## Benign Signals\n\n")
		for _, s := range res.BenignSignals {
			b.WriteString(fmt.Sprintf("- %s\n", s))
		}
		b.WriteString("\n")
	}

	if v := res.MLVerdict; v != nil {
		b.WriteString("## URL Model\n\n")
		b.WriteString(fmt.Sprintf("**Backend:** %s | **Label:** %s | **Probability:** %.3f (threshold %.2f)\n\n",
			v.Backend, v.Label, v.Probability, v.Threshold))
		if len(v.TopImpacts) > 0 {
			b.WriteString("| Feature | Value | Contribution |\n")
			b.WriteString("|---------|-------|--------------|\n")
			for _, imp := range v.TopImpacts {
				b.WriteString(fmt.Sprintf("| %s | %.2f | %+.3f |\n", imp.Feature, imp.Value, imp.Contribution))
			}
			b.WriteString("\n")
		}
	}

	if adv := res.Oracle; adv != nil && !adv.Unavailable {
		b.WriteString("## Advisory\n\n")
		b.WriteString(adv.Summary + "\n\n")
		if len(adv.SuspiciousSignals) > 0 {
			b.WriteString("Suspicious:\n")
			for _, s := range adv.SuspiciousSignals {
				b.WriteString(fmt.Sprintf("- %s\n", s))
			}
			b.WriteString("\n")
		}
		if len(adv.BenignSignals) > 0 {
			b.WriteString("Legitimate:\n")
			for _, s := range adv.BenignSignals {
				b.WriteString(fmt.Sprintf("- %s\n", s))
			}
			b.WriteString("\n")
		}
		if adv.Recommendation != "" {
			b.WriteString(fmt.Sprintf("**Recommendation:** %s\n\n", adv.Recommendation))
		}
	}

	if res.EvidenceRef != "" {
		b.WriteString(fmt.Sprintf("**Evidence:** %s\n", res.EvidenceRef))
	}

	return b.String()
}

// escapeCell keeps multi-line or pipe-bearing reasons from breaking the
// table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
