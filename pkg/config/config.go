package config

import (
	"os"
	"strconv"
	"time"
)

// OracleProvider defines the backend advisory service type
type OracleProvider string

const (
	OracleNone       OracleProvider = "none"       // No oracle, rules/model only
	OracleGroq       OracleProvider = "groq"       // Groq (high-speed inference)
	OracleOpenRouter OracleProvider = "openrouter" // OpenRouter (has free tier)
	OracleOllama     OracleProvider = "ollama"     // Local Ollama server
	OracleCustom     OracleProvider = "custom"     // Custom OpenAI-compatible endpoint
)

// EvidenceMode selects how visual evidence of a URL target is captured
type EvidenceMode string

const (
	EvidenceNone      EvidenceMode = "none"      // Never capture
	EvidenceService   EvidenceMode = "service"   // External HTTP capture service
	EvidenceGowitness EvidenceMode = "gowitness" // Local gowitness binary
)

// Model kinds for the statistical URL scorer.
const (
	ModelKindAuto   = "auto"   // Pick by artifact shape (.yaml/.yml = linear, else onnx)
	ModelKindLinear = "linear" // YAML logistic-regression artifact
	ModelKindONNX   = "onnx"   // Transformer model via ONNX runtime
)

// BandingProfile selects the label set used for decision categories
type BandingProfile string

const (
	ProfileSeverity BandingProfile = "severity" // LOW / MEDIUM / HIGH / CRITICAL
	ProfileVerdict  BandingProfile = "verdict"  // SAFE / SUSPICIOUS / MALICIOUS
)

// Config holds runtime settings for the Quishield engine and its front ends.
// Numeric scoring policy lives in Policy; Config carries collaborator wiring
// (providers, paths, timeouts). All settings can be set via environment
// variables or programmatically.
type Config struct {
	// Scoring policy (weights, thresholds, domain sets). Never nil.
	Policy *Policy

	// === Statistical URL scorer ===
	ModelPath string // Path to model artifact (YAML linear model or ONNX dir)
	ModelKind string // ModelKindAuto, ModelKindLinear, or ModelKindONNX

	// === Oracle (advisory LLM) ===
	OracleProvider OracleProvider
	OracleAPIKey   string
	OracleModel    string
	OracleBaseURL  string        // Custom base URL for self-hosted providers
	OracleTimeout  time.Duration // Per-consultation timeout

	// Optional redis cache for oracle advisories (empty addr = disabled)
	RedisAddr        string
	AdvisoryCacheTTL time.Duration

	// === Evidence capture ===
	EvidenceMode       EvidenceMode
	EvidenceServiceURL string        // For EvidenceService mode
	GowitnessPath      string        // For EvidenceGowitness mode
	EvidenceDir        string        // Screenshot output directory
	EvidenceTimeout    time.Duration // Per-capture timeout
	MaxCaptureJobs     int           // Concurrent capture bound

	// === DNS resolution ===
	ResolveTimeout time.Duration // Zero disables hostname resolution

	// === Serve mode ===
	HistoryDSN string // Postgres DSN for scan history (empty = disabled)

	// === Semantic lure matching (chromem + embeddings) ===
	EnableSemantics  bool
	EmbeddingBaseURL string // Ollama-compatible embeddings endpoint
	EmbeddingModel   string

	// === Output ===
	Banding BandingProfile
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		Policy: DefaultPolicy(),

		ModelPath: GetEnv("QUISHIELD_MODEL_PATH", ""),
		ModelKind: GetEnv("QUISHIELD_MODEL_KIND", "auto"),

		OracleProvider: detectOracleProvider(),
		OracleAPIKey:   GetEnv("QUISHIELD_ORACLE_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		OracleModel:    GetEnv("QUISHIELD_ORACLE_MODEL", "llama-3.1-70b-versatile"),
		OracleBaseURL:  GetEnv("QUISHIELD_ORACLE_BASE_URL", ""),
		OracleTimeout:  time.Duration(GetEnvInt("QUISHIELD_ORACLE_TIMEOUT_MS", 20000)) * time.Millisecond,

		RedisAddr:        GetEnv("QUISHIELD_REDIS_ADDR", ""),
		AdvisoryCacheTTL: time.Duration(GetEnvInt("QUISHIELD_ADVISORY_TTL_SECONDS", 900)) * time.Second,

		EvidenceMode:       EvidenceMode(GetEnv("QUISHIELD_EVIDENCE_MODE", string(EvidenceNone))),
		EvidenceServiceURL: GetEnv("QUISHIELD_EVIDENCE_URL", ""),
		GowitnessPath:      GetEnv("QUISHIELD_GOWITNESS_PATH", "gowitness"),
		EvidenceDir:        GetEnv("QUISHIELD_EVIDENCE_DIR", "evidence"),
		EvidenceTimeout:    time.Duration(GetEnvInt("QUISHIELD_EVIDENCE_TIMEOUT_MS", 15000)) * time.Millisecond,
		MaxCaptureJobs:     clampInt(GetEnvInt("QUISHIELD_MAX_CAPTURE_JOBS", 4), 1, 64),

		ResolveTimeout: time.Duration(GetEnvInt("QUISHIELD_RESOLVE_TIMEOUT_MS", 3000)) * time.Millisecond,

		HistoryDSN: GetEnv("QUISHIELD_HISTORY_DSN", ""),

		EnableSemantics:  GetEnvBool("QUISHIELD_ENABLE_SEMANTICS", false),
		EmbeddingBaseURL: GetEnv("QUISHIELD_EMBEDDING_URL", "http://localhost:11434"),
		EmbeddingModel:   GetEnv("QUISHIELD_EMBEDDING_MODEL", "nomic-embed-text"),

		Banding: BandingProfile(GetEnv("QUISHIELD_BANDING", string(ProfileVerdict))),
	}
}

// NewHighSecurityConfig lowers banding cutoffs and confidence bounds so the
// engine escalates more aggressively (more false positives, fewer misses).
func NewHighSecurityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Policy.SuspiciousFloor = 25
	cfg.Policy.Banding.Suspicious = 25
	cfg.Policy.Banding.Malicious = 60
	cfg.Policy.HighConf = 0.75
	return cfg
}

// NewOfflineConfig disables every networked collaborator: no oracle, no
// evidence capture, no hostname resolution, no semantics. Rules and a local
// model artifact are the only signal sources.
func NewOfflineConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.OracleProvider = OracleNone
	cfg.EvidenceMode = EvidenceNone
	cfg.EnableSemantics = false
	cfg.RedisAddr = ""
	cfg.HistoryDSN = ""
	cfg.ResolveTimeout = 0
	return cfg
}

func detectOracleProvider() OracleProvider {
	if p := os.Getenv("QUISHIELD_ORACLE_PROVIDER"); p != "" {
		return OracleProvider(p)
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return OracleGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" {
		return OracleOpenRouter
	}
	return OracleNone
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages (e.g., pkg/ml).

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "no", "NO", "off", "OFF":
		return false
	default:
		return defaultValue
	}
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
