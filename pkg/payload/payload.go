// Package payload classifies decoded QR payloads into structural types and
// extracts type-specific fields (Wi-Fi credential blocks, embedded URLs).
// Classification is pure and total: any input maps to exactly one Type.
package payload

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Type is the structural category of a decoded payload. Assigned once per
// analysis and never mutated.
type Type string

const (
	TypeURL      Type = "url"
	TypeWifi     Type = "wifi"
	TypeSMS      Type = "sms"
	TypeTel      Type = "tel"
	TypeEmail    Type = "email"
	TypeVCard    Type = "vcard"
	TypeDeeplink Type = "deeplink"
	TypeText     Type = "text"
	TypeEmpty    Type = "empty"
	TypeUnknown  Type = "unknown"
)

var (
	reEmbeddedURL = regexp.MustCompile(`(?i)https?://[^\s;"'<>]+`)
	reVCardURL    = regexp.MustCompile(`(?im)^URL[^:]*:(.+)$`)
	reWifiField   = regexp.MustCompile(`(?i)(?:^WIFI:|;)\s*([TSPH]):((?:[^;\\]|\\.)*)`)
)

// Classify determines the payload type from its literal prefix/shape.
// First match wins; prefix checks are case-insensitive.
func Classify(p string) Type {
	t := strings.TrimSpace(p)
	if t == "" {
		return TypeEmpty
	}

	lower := strings.ToLower(t)
	upper := strings.ToUpper(t)

	switch {
	case strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "www."):
		return TypeURL
	case strings.HasPrefix(upper, "WIFI:"):
		return TypeWifi
	case strings.HasPrefix(upper, "SMSTO:"), strings.HasPrefix(upper, "SMS:"):
		return TypeSMS
	case strings.HasPrefix(lower, "tel:"):
		return TypeTel
	case strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(upper, "MATMSG:"):
		return TypeEmail
	case strings.HasPrefix(upper, "BEGIN:VCARD"), strings.Contains(upper, "VCARD"):
		return TypeVCard
	case strings.HasPrefix(lower, "intent://"), strings.HasPrefix(lower, "market://"):
		return TypeDeeplink
	}

	// A dotted token without whitespace is treated as a low-confidence URL
	// so bare-domain payloads still get domain analysis.
	if !strings.ContainsAny(t, " \t\n\r") && strings.Contains(t, ".") {
		return TypeURL
	}

	return TypeText
}

// WifiConfig holds the parsed fields of a WIFI: payload.
type WifiConfig struct {
	Auth            string // T: field (WPA, WEP, nopass, or empty)
	SSID            string // S: field
	Hidden          string // H: field, "true" marks a hidden network
	PasswordPresent bool   // whether a non-empty P: field exists
}

// ParseWifi extracts the semicolon-delimited T:/S:/P:/H: fields of a WIFI:
// payload. Key matching is case-insensitive; unknown fields are ignored.
// Non-WIFI payloads yield a zero WifiConfig.
func ParseWifi(p string) WifiConfig {
	var cfg WifiConfig
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(p)), "WIFI:") {
		return cfg
	}
	for _, m := range reWifiField.FindAllStringSubmatch(p, -1) {
		key := strings.ToUpper(m[1])
		val := strings.TrimSpace(m[2])
		switch key {
		case "T":
			cfg.Auth = val
		case "S":
			cfg.SSID = val
		case "P":
			cfg.PasswordPresent = val != ""
		case "H":
			cfg.Hidden = strings.ToLower(val)
		}
	}
	return cfg
}

// ExtractEmbeddedURL scans a payload for a URL carried inside another type,
// such as a vCard URL: field or a loose http(s) token in free text.
// The vCard field form is preferred when both are present.
func ExtractEmbeddedURL(p string) (string, bool) {
	if m := reVCardURL.FindStringSubmatch(p); m != nil {
		candidate := strings.TrimSpace(m[1])
		if candidate != "" {
			return candidate, true
		}
	}
	if m := reEmbeddedURL.FindString(p); m != "" {
		return strings.TrimRight(m, ".,)"), true
	}
	return "", false
}

// Normalize applies NFKC folding so visually-identical unicode variants
// (fullwidth letters, mathematical alphanumerics) match the ASCII rule
// patterns downstream.
func Normalize(p string) string {
	return norm.NFKC.String(p)
}
