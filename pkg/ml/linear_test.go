package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quishield/quishield/pkg/config"
)

// writeModel writes a minimal valid artifact whose only active coefficient
// is keyword_hits, so scores are easy to reason about.
func writeModel(t *testing.T, threshold float64) string {
	t.Helper()

	coeffs := make([]string, NumFeatures)
	for i := range coeffs {
		coeffs[i] = "0.0"
	}
	coeffs[NumFeatures-1] = "2.0" // keyword_hits

	names := make([]string, NumFeatures)
	for i, n := range FeatureNames {
		names[i] = n
	}

	artifact := fmt.Sprintf(`model_version: "test"
features: [%s]
coefficients: [%s]
intercept: -3.0
threshold: %v
`, strings.Join(names, ", "), strings.Join(coeffs, ", "), threshold)

	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLinearModelScore(t *testing.T) {
	m, err := LoadLinearModel(writeModel(t, 0.31), 0.5)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Three keyword hits: z = -3 + 3*2 = 3, sigmoid(3) ~ 0.95.
	v, err := m.Score("http://bad.net/login-verify-account")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Probability < 0.9 {
		t.Errorf("probability = %v, want > 0.9", v.Probability)
	}
	if v.Label != "phishing" || !v.Suspicious() {
		t.Errorf("verdict = %q suspicious=%v, want phishing/true", v.Label, v.Suspicious())
	}
	if len(v.TopImpacts) == 0 || v.TopImpacts[0].Feature != "keyword_hits" {
		t.Errorf("top impact must be keyword_hits, got %+v", v.TopImpacts)
	}

	// No keyword hits: z = -3, sigmoid(-3) ~ 0.047.
	v, err = m.Score("http://plain.net/page")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Label != "benign" || v.Suspicious() {
		t.Errorf("verdict = %q suspicious=%v, want benign/false", v.Label, v.Suspicious())
	}
}

func TestLinearModelValidation(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return path
	}

	cases := []struct {
		name    string
		content string
	}{
		{"count mismatch", "features: [url_len]\ncoefficients: [1.0, 2.0]\nintercept: 0\nthreshold: 0.5\n"},
		{"wrong order", "features: [host_len, url_len]\ncoefficients: [1.0, 2.0]\nintercept: 0\nthreshold: 0.5\n"},
		{"bad threshold", "features: []\ncoefficients: []\nintercept: 0\nthreshold: 1.5\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadLinearModel(write(tc.name+".yaml", tc.content), 0.5); err == nil {
				t.Errorf("expected load to fail")
			}
		})
	}

	if _, err := LoadLinearModel(filepath.Join(dir, "missing.yaml"), 0.5); err == nil {
		t.Errorf("missing artifact must fail")
	}
}

// writeModelNoThreshold writes an artifact that omits its operating
// threshold, so the configured default must apply.
func writeModelNoThreshold(t *testing.T) string {
	t.Helper()

	names := strings.Join(FeatureNames[:], ", ")
	coeffs := strings.TrimSuffix(strings.Repeat("0.0, ", NumFeatures), ", ")
	artifact := fmt.Sprintf("features: [%s]\ncoefficients: [%s]\nintercept: 0\n", names, coeffs)

	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLinearModelThresholdFallback(t *testing.T) {
	// An artifact without a threshold takes the configured one; an
	// artifact that carries its own keeps it.
	m, err := LoadLinearModel(writeModelNoThreshold(t), 0.42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Threshold != 0.42 {
		t.Errorf("threshold = %v, want the configured 0.42", m.Threshold)
	}

	m, err = LoadLinearModel(writeModel(t, 0.31), 0.42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Threshold != 0.31 {
		t.Errorf("threshold = %v, artifact value must win", m.Threshold)
	}
}

func TestLoaderDegradesGracefully(t *testing.T) {
	cfg := config.NewOfflineConfig()
	cfg.ModelPath = ""

	l := NewLoader(cfg)
	if l.Available() {
		t.Fatalf("loader with no model path must not report available")
	}
	if _, err := l.Scorer(); err == nil {
		t.Errorf("expected load error")
	}
}

func TestLoaderLoadsLinearModel(t *testing.T) {
	cfg := config.NewOfflineConfig()
	cfg.ModelPath = writeModel(t, 0.31)
	cfg.ModelKind = config.ModelKindAuto

	l := NewLoader(cfg)
	if !l.Available() {
		t.Fatalf("loader must resolve a .yaml artifact as the linear backend")
	}
	s, _ := l.Scorer()
	if s.Name() != "linear-test" {
		t.Errorf("backend = %q, want linear-test", s.Name())
	}
}

func TestLoaderAppliesPolicyThreshold(t *testing.T) {
	cfg := config.NewOfflineConfig()
	cfg.ModelPath = writeModelNoThreshold(t)
	cfg.Policy.MLThreshold = 0.42

	l := NewLoader(cfg)
	s, err := l.Scorer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := s.Score("http://example.net/x")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Threshold != 0.42 {
		t.Errorf("verdict threshold = %v, want the policy value 0.42", v.Threshold)
	}
}
