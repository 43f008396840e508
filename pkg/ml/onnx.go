package ml

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// OnnxConfig configures the transformer URL scorer.
type OnnxConfig struct {
	// ModelPath is a local directory holding the exported ONNX model.
	ModelPath string
	// OnnxLibraryPath points at the ONNX Runtime shared library directory.
	// When empty the pure Go backend is used (slower, no native deps).
	OnnxLibraryPath string
	// Threshold overrides the decision threshold. Zero means the default.
	Threshold float64
}

// defaultOnnxThreshold applies when the config does not carry one. The
// transformer backends emit calibrated probabilities, so 0.5 is correct
// where the linear model needs its tuned 0.31.
const defaultOnnxThreshold = 0.5

// OnnxScorer scores URLs with a text-classification transformer through
// hugot. It satisfies Scorer so the pipeline treats it exactly like the
// linear backend, minus per-feature impacts (the transformer has none).
type OnnxScorer struct {
	mu        sync.RWMutex
	session   *hugot.Session
	pipeline  *pipelines.TextClassificationPipeline
	threshold float64
}

// NewOnnxScorer initializes the ONNX session and classification pipeline.
// Initialization failures are returned, not fatal; the loader logs them and
// the pipeline continues rules-only.
func NewOnnxScorer(cfg OnnxConfig) (*OnnxScorer, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx model path: %w", err)
	}

	session, err := newOnnxSession(cfg.OnnxLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: cfg.ModelPath,
		Name:      "url-phishing-scorer",
	})
	if err != nil {
		destroyErr := session.Destroy()
		if destroyErr != nil {
			slog.Warn("onnx session cleanup failed", "error", destroyErr)
		}
		return nil, fmt.Errorf("create classification pipeline: %w", err)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = defaultOnnxThreshold
	}

	return &OnnxScorer{
		session:   session,
		pipeline:  pipeline,
		threshold: threshold,
	}, nil
}

// newOnnxSession prefers the native ONNX Runtime backend and falls back to
// the pure Go backend when the shared library is absent.
func newOnnxSession(libPath string) (*hugot.Session, error) {
	if libPath == "" {
		libPath = detectOnnxLibrary()
	}
	if libPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(libPath))
		if err == nil {
			slog.Info("onnx scorer using native runtime", "lib", libPath)
			return session, nil
		}
		slog.Warn("native onnx runtime unavailable, falling back to Go backend", "error", err)
	}
	return hugot.NewGoSession()
}

// detectOnnxLibrary probes the usual install locations for the runtime.
func detectOnnxLibrary() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// Name identifies the scorer backend in results and logs.
func (s *OnnxScorer) Name() string {
	return "onnx"
}

// Score classifies one URL. Transformer labels vary by model, so any label
// containing "phish" or "malicious" (or the generic LABEL_1) counts as the
// positive class.
func (s *OnnxScorer) Score(rawURL string) (*Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pipeline == nil {
		return nil, fmt.Errorf("onnx scorer not initialized")
	}

	result, err := s.pipeline.RunPipeline([]string{rawURL})
	if err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return nil, fmt.Errorf("onnx inference returned no outputs")
	}

	out := result.ClassificationOutputs[0][0]
	p := float64(out.Score)
	if !isPhishingLabel(out.Label) {
		// Model reported the benign class; flip to the positive-class
		// probability so verdicts are comparable across backends.
		p = 1 - p
	}

	return &Verdict{
		Probability: p,
		Threshold:   s.threshold,
		Label:       labelFor(p, s.threshold),
		Backend:     s.Name(),
	}, nil
}

func isPhishingLabel(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "phish") || strings.Contains(l, "malicious") || l == "label_1"
}

// Close releases the underlying ONNX session.
func (s *OnnxScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipeline = nil
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return fmt.Errorf("destroy onnx session: %w", err)
		}
		s.session = nil
	}
	return nil
}
