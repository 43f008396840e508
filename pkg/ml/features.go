// Package ml provides the statistical URL scorers: a portable linear model
// loaded from a YAML artifact and an optional ONNX transformer backend.
// Scorers are loaded lazily and exactly once; a missing or broken model
// degrades the pipeline to rules-only mode instead of failing it.
package ml

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// FeatureNames lists the lexical features in the exact order the linear
// model's coefficient vector expects. The order is part of the model
// contract; reordering requires retraining.
var FeatureNames = [...]string{
	"url_len",
	"host_len",
	"path_len",
	"tld_len",
	"digit_count",
	"special_count",
	"at_count",
	"dot_count",
	"dash_count",
	"underscore_count",
	"question_count",
	"equal_count",
	"amp_count",
	"percent_count",
	"ip_like",
	"ratio_digits",
	"has_https",
	"has_shortener",
	"keyword_hits",
}

// NumFeatures is the width of the feature vector.
const NumFeatures = len(FeatureNames)

// The keyword and shortener sets below are frozen with the feature
// contract: they are what shipped model artifacts were trained against.
// The scoring policy carries its own (tunable) copies for the rule engine;
// changing these would silently shift every model score.
var featureKeywords = []string{
	"login", "verify", "update", "secure", "account", "bank", "paypal",
	"google", "microsoft", "apple", "confirm", "password", "signin",
	"free", "bonus",
}

var featureShorteners = []string{
	"bit.ly", "t.co", "tinyurl.com", "goo.gl", "is.gd", "buff.ly", "cutt.ly",
}

var ipv4Re = regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`)

// ExtractFeatures computes the lexical feature vector for a raw URL. It
// never fails: a URL that net/url rejects falls back to a best-effort host
// guess so the model still sees plausible counts.
func ExtractFeatures(rawURL string) []float64 {
	lower := strings.ToLower(strings.TrimSpace(rawURL))

	host, path := splitHostPath(lower)

	digits := 0
	specials := 0
	for _, r := range lower {
		switch {
		case unicode.IsDigit(r):
			digits++
		case !unicode.IsLetter(r):
			// Every non-alphanumeric rune counts, separators included.
			specials++
		}
	}

	tld := ""
	if i := strings.LastIndex(host, "."); i >= 0 {
		tld = host[i+1:]
	}

	ratio := 0.0
	if len(lower) > 0 {
		ratio = float64(digits) / float64(len(lower))
	}

	keywordHits := 0
	for _, kw := range featureKeywords {
		if strings.Contains(lower, kw) {
			keywordHits++
		}
	}

	v := make([]float64, NumFeatures)
	v[0] = float64(len(lower))
	v[1] = float64(len(host))
	v[2] = float64(len(path))
	v[3] = float64(len(tld))
	v[4] = float64(digits)
	v[5] = float64(specials)
	v[6] = countRune(lower, '@')
	v[7] = countRune(lower, '.')
	v[8] = countRune(lower, '-')
	v[9] = countRune(lower, '_')
	v[10] = countRune(lower, '?')
	v[11] = countRune(lower, '=')
	v[12] = countRune(lower, '&')
	v[13] = countRune(lower, '%')
	v[14] = boolFeature(ipv4Re.MatchString(lower) ||
		(strings.Contains(lower, "[") && strings.Contains(lower, "]") && strings.Contains(lower, ":")))
	v[15] = ratio
	v[16] = boolFeature(strings.HasPrefix(lower, "https://"))
	v[17] = boolFeature(hostIsShortener(host))
	v[18] = float64(keywordHits)
	return v
}

// splitHostPath extracts (host, path) from a raw URL, tolerating inputs
// net/url cannot parse. The host keeps userinfo and port, and the path
// keeps its percent-escapes, matching the counts shipped artifacts were
// trained on.
func splitHostPath(lower string) (string, string) {
	withScheme := lower
	if !strings.Contains(withScheme, "://") {
		withScheme = "http://" + withScheme
	}
	if u, err := url.Parse(withScheme); err == nil {
		host := u.Host
		if u.User != nil {
			host = u.User.String() + "@" + host
		}
		return host, u.EscapedPath()
	}

	// Malformed URL: the host guess is everything before the first slash,
	// truncated; the path stays empty.
	host := lower
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if len(host) > 255 {
		host = host[:255]
	}
	return host, ""
}

func hostIsShortener(host string) bool {
	for _, s := range featureShorteners {
		if host == s {
			return true
		}
	}
	return false
}

func countRune(s string, r rune) float64 {
	return float64(strings.Count(s, string(r)))
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
