package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Weights are the additive score contributions per finding severity.
// Relative ordering (critical > high > medium > low) is load-bearing;
// the exact numbers are tunable policy.
type Weights struct {
	Critical int `mapstructure:"critical" yaml:"critical"`
	High     int `mapstructure:"high" yaml:"high"`
	Medium   int `mapstructure:"medium" yaml:"medium"`
	Low      int `mapstructure:"low" yaml:"low"`

	// AllowlistBonus is subtracted when the target host is allowlisted
	// or reserved. The aggregate score is clamped at zero, so this can
	// only suppress, never invert.
	AllowlistBonus int `mapstructure:"allowlist_bonus" yaml:"allowlist_bonus"`
}

// Banding maps a clamped [0,100] risk score to a category. Cutoffs must
// be strictly increasing.
type Banding struct {
	Suspicious int `mapstructure:"suspicious" yaml:"suspicious"` // score >= this -> SUSPICIOUS/MEDIUM
	Malicious  int `mapstructure:"malicious" yaml:"malicious"`   // score >= this -> MALICIOUS/HIGH
	Critical   int `mapstructure:"critical" yaml:"critical"`     // score >= this -> CRITICAL (severity profile)
}

// Policy carries every numeric scoring constant and static domain set the
// engine consumes. Values are already resolved here; the engine never reads
// the environment or files itself.
type Policy struct {
	Weights Weights `mapstructure:"weights" yaml:"weights"`
	Banding Banding `mapstructure:"banding" yaml:"banding"`

	// Model confidence zones (see decision logic). Probability at or above
	// HighConf is confidently malicious, at or below LowConf confidently
	// benign, anything between is the gray zone.
	LowConf  float64 `mapstructure:"low_conf" yaml:"low_conf"`
	HighConf float64 `mapstructure:"high_conf" yaml:"high_conf"`

	// MLThreshold is the operating decision threshold of the URL scorer.
	// A model artifact may carry its own tuned threshold which wins.
	MLThreshold float64 `mapstructure:"ml_threshold" yaml:"ml_threshold"`

	// SuspiciousFloor: once the rule score reaches this, a confident
	// benign model verdict may never silently override the rules.
	SuspiciousFloor int `mapstructure:"suspicious_floor" yaml:"suspicious_floor"`

	// Model score contributions per confidence zone.
	MLConfidentWeight int `mapstructure:"ml_confident_weight" yaml:"ml_confident_weight"`
	GrayAboveWeight   int `mapstructure:"gray_above_weight" yaml:"gray_above_weight"`
	GrayBelowWeight   int `mapstructure:"gray_below_weight" yaml:"gray_below_weight"`

	// URL anomaly thresholds.
	MaxURLLength  int `mapstructure:"max_url_length" yaml:"max_url_length"`
	MaxHostLength int `mapstructure:"max_host_length" yaml:"max_host_length"`
	MaxHostDashes int `mapstructure:"max_host_dashes" yaml:"max_host_dashes"`

	// Static domain sets.
	Allowlist  []string `mapstructure:"allowlist" yaml:"allowlist"`
	Reserved   []string `mapstructure:"reserved" yaml:"reserved"`
	Shorteners []string `mapstructure:"shorteners" yaml:"shorteners"`

	// Brand names checked for impersonation (brand in host without the
	// registered domain being <brand>.com).
	Brands []string `mapstructure:"brands" yaml:"brands"`

	// Phishing/smishing lure keywords.
	LureKeywords []string `mapstructure:"lure_keywords" yaml:"lure_keywords"`
}

// DefaultPolicy returns the built-in scoring policy. Domain sets follow the
// sets shipped with the original scanner plus common allowlist entries.
func DefaultPolicy() *Policy {
	return &Policy{
		Weights: Weights{
			Critical:       60,
			High:           35,
			Medium:         20,
			Low:            10,
			AllowlistBonus: 15,
		},
		Banding: Banding{
			Suspicious: 35,
			Malicious:  70,
			Critical:   85,
		},
		LowConf:           0.15,
		HighConf:          0.85,
		MLThreshold:       0.31,
		SuspiciousFloor:   35,
		MLConfidentWeight: 30,
		GrayAboveWeight:   15,
		GrayBelowWeight:   5,
		MaxURLLength:      120,
		MaxHostLength:     40,
		MaxHostDashes:     3,
		Allowlist: []string{
			"github.com", "google.com", "youtube.com", "wikipedia.org",
			"microsoft.com", "apple.com", "amazon.com", "paypal.com",
			"facebook.com", "instagram.com", "linkedin.com", "twitter.com",
			"x.com", "whatsapp.com", "web.whatsapp.com",
			"accounts.google.com", "login.microsoftonline.com",
		},
		Reserved: []string{
			"example.com", "example.org", "example.net",
			"localhost", "test", "invalid", "local",
		},
		Shorteners: []string{
			"bit.ly", "t.co", "tinyurl.com", "goo.gl", "is.gd",
			"buff.ly", "cutt.ly", "ow.ly", "rebrand.ly", "shorturl.at",
		},
		Brands: []string{
			"paypal", "google", "microsoft", "apple", "amazon",
			"facebook", "instagram", "whatsapp", "netflix", "bank",
		},
		LureKeywords: []string{
			"login", "verify", "update", "secure", "account", "bank",
			"confirm", "password", "signin", "free", "bonus", "urgent",
			"otp", "transfer", "payment", "invoice", "prize", "reward",
			"suspended", "unlock",
		},
	}
}

// LoadPolicy reads a YAML policy file and overlays it on the defaults.
// If path is empty, quishield.yaml is searched in the working directory,
// ./configs, and ~/.config/quishield. A missing file is not an error when
// no explicit path was given; the defaults are returned.
func LoadPolicy(path string) (*Policy, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quishield")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "quishield"))
		}
	}

	p := DefaultPolicy()
	setPolicyDefaults(v, p)

	if err := v.ReadInConfig(); err != nil {
		if path == "" {
			if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
				return p, nil
			}
		}
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	return p, nil
}

func setPolicyDefaults(v *viper.Viper, p *Policy) {
	v.SetDefault("weights.critical", p.Weights.Critical)
	v.SetDefault("weights.high", p.Weights.High)
	v.SetDefault("weights.medium", p.Weights.Medium)
	v.SetDefault("weights.low", p.Weights.Low)
	v.SetDefault("weights.allowlist_bonus", p.Weights.AllowlistBonus)
	v.SetDefault("banding.suspicious", p.Banding.Suspicious)
	v.SetDefault("banding.malicious", p.Banding.Malicious)
	v.SetDefault("banding.critical", p.Banding.Critical)
	v.SetDefault("low_conf", p.LowConf)
	v.SetDefault("high_conf", p.HighConf)
	v.SetDefault("ml_threshold", p.MLThreshold)
	v.SetDefault("suspicious_floor", p.SuspiciousFloor)
	v.SetDefault("ml_confident_weight", p.MLConfidentWeight)
	v.SetDefault("gray_above_weight", p.GrayAboveWeight)
	v.SetDefault("gray_below_weight", p.GrayBelowWeight)
	v.SetDefault("max_url_length", p.MaxURLLength)
	v.SetDefault("max_host_length", p.MaxHostLength)
	v.SetDefault("max_host_dashes", p.MaxHostDashes)
	v.SetDefault("allowlist", p.Allowlist)
	v.SetDefault("reserved", p.Reserved)
	v.SetDefault("shorteners", p.Shorteners)
	v.SetDefault("brands", p.Brands)
	v.SetDefault("lure_keywords", p.LureKeywords)
}

// WriteDefault writes the built-in policy as a YAML file, the starting
// point for local tuning.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultPolicy())
	if err != nil {
		return fmt.Errorf("failed to marshal default policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return nil
}

// Validate checks the structural invariants the engine depends on.
func (p *Policy) Validate() error {
	if !(p.Weights.Critical > p.Weights.High &&
		p.Weights.High > p.Weights.Medium &&
		p.Weights.Medium > p.Weights.Low && p.Weights.Low > 0) {
		return fmt.Errorf("severity weights must satisfy critical > high > medium > low > 0")
	}
	if !(p.Banding.Suspicious < p.Banding.Malicious && p.Banding.Malicious < p.Banding.Critical) {
		return fmt.Errorf("banding cutoffs must be strictly increasing")
	}
	if p.Banding.Suspicious < 0 || p.Banding.Critical > 100 {
		return fmt.Errorf("banding cutoffs must be within [0,100]")
	}
	if !(p.LowConf >= 0 && p.LowConf < p.HighConf && p.HighConf <= 1) {
		return fmt.Errorf("confidence zone bounds must satisfy 0 <= low < high <= 1")
	}
	if p.MLThreshold <= 0 || p.MLThreshold >= 1 {
		return fmt.Errorf("ml_threshold must be in (0,1)")
	}
	return nil
}

// Allowlisted reports whether host (or a parent domain) is in the allowlist.
func (p *Policy) Allowlisted(host string) bool {
	return hostInSet(host, p.Allowlist)
}

// ReservedHost reports whether host belongs to the reserved/documentation set.
func (p *Policy) ReservedHost(host string) bool {
	return hostInSet(host, p.Reserved)
}

// Shortener reports whether host is a known URL shortener.
func (p *Policy) Shortener(host string) bool {
	return hostInSet(host, p.Shorteners)
}

// hostInSet matches exact entries and subdomains of entries.
func hostInSet(host string, set []string) bool {
	if host == "" {
		return false
	}
	for _, entry := range set {
		if host == entry {
			return true
		}
		if len(host) > len(entry)+1 && host[len(host)-len(entry)-1] == '.' &&
			host[len(host)-len(entry):] == entry {
			return true
		}
	}
	return false
}
