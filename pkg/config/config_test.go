package config

import (
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Policy == nil {
		t.Fatalf("config must always carry a policy")
	}
	if err := cfg.Policy.Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
	if cfg.ModelKind != ModelKindAuto {
		t.Errorf("model kind = %q, want auto", cfg.ModelKind)
	}
	if cfg.Banding != ProfileVerdict {
		t.Errorf("banding profile = %q, want verdict", cfg.Banding)
	}
}

func TestNewOfflineConfig(t *testing.T) {
	cfg := NewOfflineConfig()
	if cfg.OracleProvider != OracleNone || cfg.EvidenceMode != EvidenceNone {
		t.Errorf("offline config must disable oracle and evidence")
	}
	if cfg.ResolveTimeout != 0 {
		t.Errorf("offline config must disable hostname resolution")
	}
	if cfg.RedisAddr != "" || cfg.HistoryDSN != "" {
		t.Errorf("offline config must not reference external stores")
	}
}

func TestNewHighSecurityConfig(t *testing.T) {
	cfg := NewHighSecurityConfig()
	def := DefaultPolicy()
	if cfg.Policy.SuspiciousFloor >= def.SuspiciousFloor {
		t.Errorf("high security floor must be stricter than default")
	}
	if cfg.Policy.Banding.Malicious >= def.Banding.Malicious {
		t.Errorf("high security malicious cutoff must be stricter")
	}
	if err := cfg.Policy.Validate(); err != nil {
		t.Errorf("high security policy invalid: %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("QS_TEST_STR", "hello")
	t.Setenv("QS_TEST_BOOL", "true")
	t.Setenv("QS_TEST_INT", "42")
	t.Setenv("QS_TEST_FLOAT", "0.5")
	t.Setenv("QS_TEST_BAD_INT", "not-a-number")

	if got := GetEnv("QS_TEST_STR", "x"); got != "hello" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("QS_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv fallback = %q", got)
	}
	if !GetEnvBool("QS_TEST_BOOL", false) {
		t.Errorf("GetEnvBool must parse true")
	}
	if got := GetEnvInt("QS_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("QS_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetEnvInt must fall back on parse failure, got %d", got)
	}
	if got := GetEnvFloat("QS_TEST_FLOAT", 0); got != 0.5 {
		t.Errorf("GetEnvFloat = %v", got)
	}
}

func TestOracleProviderDetection(t *testing.T) {
	t.Setenv("QUISHIELD_ORACLE_PROVIDER", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	if got := detectOracleProvider(); got != OracleNone {
		t.Errorf("no keys must detect none, got %s", got)
	}

	t.Setenv("GROQ_API_KEY", "gsk_test")
	if got := detectOracleProvider(); got != OracleGroq {
		t.Errorf("groq key must detect groq, got %s", got)
	}

	t.Setenv("QUISHIELD_ORACLE_PROVIDER", "ollama")
	if got := detectOracleProvider(); got != OracleOllama {
		t.Errorf("explicit provider wins, got %s", got)
	}
}

func TestOracleTimeoutDefault(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.OracleTimeout <= 0 || cfg.OracleTimeout > time.Minute {
		t.Errorf("oracle timeout = %v, want a sane bounded default", cfg.OracleTimeout)
	}
}
