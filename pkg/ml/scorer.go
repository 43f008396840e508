package ml

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/quishield/quishield/pkg/config"
)

// maxImpacts bounds the explanation list attached to a verdict.
const maxImpacts = 5

// Impact is one feature's signed contribution to the model's raw score.
type Impact struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Verdict is a scorer's assessment of one URL.
type Verdict struct {
	Probability float64  `json:"probability"`
	Threshold   float64  `json:"threshold"`
	Label       string   `json:"label"`
	TopImpacts  []Impact `json:"top_impacts,omitempty"`
	Backend     string   `json:"backend"`
}

// Suspicious reports whether the probability crosses the model threshold.
func (v *Verdict) Suspicious() bool {
	return v.Probability >= v.Threshold
}

func labelFor(p, threshold float64) string {
	if p >= threshold {
		return "phishing"
	}
	return "benign"
}

// Scorer is the statistical URL scoring backend.
type Scorer interface {
	// Score returns the phishing verdict for a raw URL.
	Score(rawURL string) (*Verdict, error)
	// Name identifies the backend for results and logs.
	Name() string
}

// Loader resolves the configured scorer exactly once. A failed load is
// remembered so every subsequent analysis degrades to rules-only mode
// without retrying the filesystem.
type Loader struct {
	cfg *config.Config

	once   sync.Once
	scorer Scorer
	err    error
}

// NewLoader creates a lazy scorer loader for the given configuration.
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{cfg: cfg}
}

// Scorer returns the loaded backend, or nil with the load error when no
// scorer is available.
func (l *Loader) Scorer() (Scorer, error) {
	l.once.Do(func() {
		l.scorer, l.err = l.load()
		if l.err != nil {
			slog.Warn("URL scorer unavailable, continuing rules-only",
				"model_path", l.cfg.ModelPath, "error", l.err)
		} else {
			slog.Info("URL scorer loaded",
				"backend", l.scorer.Name(), "model_path", l.cfg.ModelPath)
		}
	})
	return l.scorer, l.err
}

// Available reports whether a scorer loaded successfully.
func (l *Loader) Available() bool {
	s, err := l.Scorer()
	return err == nil && s != nil
}

func (l *Loader) load() (Scorer, error) {
	if l.cfg.ModelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}

	switch resolveKind(l.cfg.ModelPath, l.cfg.ModelKind) {
	case config.ModelKindLinear:
		return LoadLinearModel(l.cfg.ModelPath, l.cfg.Policy.MLThreshold)
	case config.ModelKindONNX:
		return NewOnnxScorer(OnnxConfig{
			ModelPath:       l.cfg.ModelPath,
			OnnxLibraryPath: config.GetEnv("QUISHIELD_ONNX_LIB", ""),
			Threshold:       l.cfg.Policy.MLThreshold,
		})
	default:
		return nil, fmt.Errorf("unknown model kind %q", l.cfg.ModelKind)
	}
}
