package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPolicyValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy must validate: %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	broken := func(mutate func(*Policy)) *Policy {
		p := DefaultPolicy()
		mutate(p)
		return p
	}

	cases := []struct {
		name string
		p    *Policy
	}{
		{"weights out of order", broken(func(p *Policy) { p.Weights.Low = p.Weights.Critical + 1 })},
		{"bands not increasing", broken(func(p *Policy) { p.Banding.Malicious = p.Banding.Suspicious - 1 })},
		{"zones inverted", broken(func(p *Policy) { p.LowConf = 0.9 })},
		{"threshold out of range", broken(func(p *Policy) { p.MLThreshold = 1.2 })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.p.Validate(); err == nil {
				t.Errorf("expected validation failure")
			}
		})
	}
}

func TestLoadPolicyOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quishield.yaml")
	content := `
weights:
  critical: 80
banding:
  suspicious: 30
allowlist:
  - internal.corp
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if p.Weights.Critical != 80 {
		t.Errorf("critical weight = %d, want 80", p.Weights.Critical)
	}
	if p.Banding.Suspicious != 30 {
		t.Errorf("suspicious cutoff = %d, want 30", p.Banding.Suspicious)
	}
	// Untouched fields keep defaults.
	if p.Weights.Medium != DefaultPolicy().Weights.Medium {
		t.Errorf("medium weight must keep default, got %d", p.Weights.Medium)
	}
	if !p.Allowlisted("internal.corp") || !p.Allowlisted("git.internal.corp") {
		t.Errorf("custom allowlist must match host and subdomains")
	}
}

func TestLoadPolicyMissingExplicitFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("explicit missing file must fail")
	}
}

func TestLoadPolicyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quishield.yaml")
	content := "banding:\n  suspicious: 90\n  malicious: 70\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Errorf("non-increasing bands must be rejected")
	}
}

func TestHostSets(t *testing.T) {
	p := DefaultPolicy()

	if !p.Allowlisted("github.com") || !p.Allowlisted("gist.github.com") {
		t.Errorf("allowlist must match exact host and subdomains")
	}
	if p.Allowlisted("github.com.evil.net") {
		t.Errorf("suffix tricks must not match the allowlist")
	}
	if !p.ReservedHost("example.com") || !p.ReservedHost("localhost") {
		t.Errorf("reserved set must include documentation hosts")
	}
	if !p.Shortener("bit.ly") {
		t.Errorf("bit.ly must be a shortener")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quishield.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy on written defaults: %v", err)
	}
	want := DefaultPolicy()
	if p.Weights != want.Weights || p.Banding != want.Banding {
		t.Errorf("weights/banding changed across write+load: %+v vs %+v", p, want)
	}
	if len(p.Allowlist) != len(want.Allowlist) || len(p.LureKeywords) != len(want.LureKeywords) {
		t.Errorf("domain sets changed across write+load")
	}
}
