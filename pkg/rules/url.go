package rules

import (
	"fmt"
	"strings"

	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/payload"
)

// leetMap normalizes the digit/symbol substitutions attackers use to sneak
// brand names past exact matching (paypa1, g00gle, amaz0n).
var leetMap = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

// detectURL applies the lexical and reputation heuristics to the resolved
// domain info. It runs only when the payload carries a URL target; for
// everything else it returns an empty result.
func (e *Engine) detectURL(text string, _ payload.Type, dom *domain.Info) Result {
	var out Result
	if dom == nil {
		return out
	}
	if dom.Host == "" {
		// A missing host is insufficient evidence, not an attack signal:
		// the finding is recorded for visibility but contributes nothing.
		out.add(Finding{
			ID:       "url_unparseable",
			Title:    "URL could not be parsed",
			Severity: SeverityInfo,
			Reason:   "Payload looks like a URL but has no extractable host; insufficient evidence to score",
		}, 0)
		if hits := e.lureHits(text); len(hits) > 0 {
			out.add(Finding{
				ID:       "url_lure_keywords",
				Title:    "Phishing lure keywords in URL",
				Severity: SeverityMedium,
				Reason:   fmt.Sprintf("URL contains lure keywords: %s", strings.Join(hits, ", ")),
			}, e.weight(SeverityMedium))
		}
		return out
	}

	trusted := dom.Allowlisted || dom.Reserved

	// Reputation gates. A trusted host suppresses the lexical heuristics and
	// contributes the (bounded) allowlist bonus instead.
	if dom.Allowlisted {
		out.benign(fmt.Sprintf("Host %s is on the trusted allowlist", dom.Host))
		out.ScoreDelta -= e.policy.Weights.AllowlistBonus
	}
	if dom.Reserved {
		out.benign(fmt.Sprintf("Host %s is a reserved or documentation domain", dom.Host))
	}

	if dom.IsShortener && !trusted {
		out.add(Finding{
			ID:       "url_shortener",
			Title:    "URL shortener hides destination",
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("%s masks the final landing page from the user", dom.Host),
		}, e.weight(SeverityMedium))
	}

	if !trusted {
		e.detectImpersonation(dom, &out)
		e.detectHostShape(dom, &out)
	}

	if dom.Resolvable == domain.ResolvedNo && !trusted {
		out.add(Finding{
			ID:       "url_unresolvable",
			Title:    "Domain does not resolve",
			Severity: SeverityHigh,
			Reason:   fmt.Sprintf("%s has no DNS records; freshly registered or takedown-evading domains look like this", dom.Host),
		}, e.weight(SeverityHigh))
	}

	switch dom.Scheme {
	case "https":
		out.benign("Connection uses HTTPS")
	case "http":
		out.add(Finding{
			ID:       "url_no_tls",
			Title:    "Unencrypted HTTP connection",
			Severity: SeverityLow,
			Reason:   "Credentials or form data sent to this URL travel in plaintext",
		}, e.weight(SeverityLow))
	}

	hits := e.lureHits(dom.Host + " " + dom.Path + " " + text)
	if len(hits) > 0 {
		if trusted {
			out.benign("Lure-style keywords appear on a trusted host")
		} else {
			out.add(Finding{
				ID:       "url_lure_keywords",
				Title:    "Phishing lure keywords in URL",
				Severity: SeverityMedium,
				Reason:   fmt.Sprintf("URL contains lure keywords: %s", strings.Join(hits, ", ")),
			}, e.weight(SeverityMedium))
		}
	}

	if len(dom.RawURL) >= e.policy.MaxURLLength {
		out.add(Finding{
			ID:       "url_oversize",
			Title:    "Unusually long URL",
			Severity: SeverityLow,
			Reason:   fmt.Sprintf("URL is %d characters; long URLs are often used to bury the real destination", len(dom.RawURL)),
		}, e.weight(SeverityLow))
	}

	return out
}

// detectImpersonation checks the host for brand lookalikes. The host is
// leetspeak-normalized first so digit substitutions still match, then any
// brand occurrence outside the brand's own registrable domain is flagged.
func (e *Engine) detectImpersonation(dom *domain.Info, out *Result) {
	normalized := leetMap.Replace(dom.Host)
	for _, brand := range e.policy.Brands {
		if !strings.Contains(normalized, brand) {
			continue
		}
		official := brand + ".com"
		if dom.Host == official || strings.HasSuffix(dom.Host, "."+official) {
			continue
		}
		delta := e.weight(SeverityHigh)
		reason := fmt.Sprintf("Host %s imitates the %s brand without being its official domain", dom.Host, brand)
		if len(e.lureHits(dom.Host+dom.Path)) > 0 {
			delta += e.weight(SeverityMedium)
			reason += "; combined with lure keywords this is a classic credential-phishing shape"
		}
		out.add(Finding{
			ID:       "url_brand_impersonation",
			Title:    "Brand impersonation in domain",
			Severity: SeverityHigh,
			Reason:   reason,
		}, delta)
		return
	}
}

// detectHostShape flags structurally suspicious hostnames: dash stuffing and
// abnormal length, both common in throwaway phishing domains.
func (e *Engine) detectHostShape(dom *domain.Info, out *Result) {
	if strings.Count(dom.Host, "-") >= e.policy.MaxHostDashes {
		out.add(Finding{
			ID:       "url_dashed_host",
			Title:    "Hyphen-stuffed hostname",
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("%s uses %d hyphens; auto-generated phishing domains commonly do", dom.Host, strings.Count(dom.Host, "-")),
		}, e.weight(SeverityMedium))
	}
	if len(dom.Host) > e.policy.MaxHostLength {
		out.add(Finding{
			ID:       "url_long_host",
			Title:    "Abnormally long hostname",
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("Hostname is %d characters long", len(dom.Host)),
		}, e.weight(SeverityMedium))
	}
}
