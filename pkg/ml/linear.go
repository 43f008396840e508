package ml

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LinearModel is a logistic-regression scorer over the lexical URL
// features. The artifact is a small YAML file exported at training time,
// so inference needs no ML runtime at all.
type LinearModel struct {
	ModelVersion string    `yaml:"model_version"`
	Features     []string  `yaml:"features"`
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`
	Threshold    float64   `yaml:"threshold"`
}

// LoadLinearModel reads and validates a linear model artifact. An artifact
// that carries its own threshold keeps it (a model ships with its tuned
// operating point); one that omits it falls back to the configured
// defaultThreshold.
func LoadLinearModel(path string, defaultThreshold float64) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m LinearModel
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if m.Threshold == 0 {
		m.Threshold = defaultThreshold
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &m, nil
}

// validate checks the artifact against the package feature contract.
func (m *LinearModel) validate() error {
	if len(m.Coefficients) != len(m.Features) {
		return fmt.Errorf("coefficient count %d does not match feature count %d",
			len(m.Coefficients), len(m.Features))
	}
	if len(m.Features) != NumFeatures {
		return fmt.Errorf("artifact declares %d features, scorer extracts %d",
			len(m.Features), NumFeatures)
	}
	for i, name := range m.Features {
		if name != FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, expected %q", i, name, FeatureNames[i])
		}
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0, 1)", m.Threshold)
	}
	return nil
}

// Name identifies the scorer backend in results and logs.
func (m *LinearModel) Name() string {
	if m.ModelVersion != "" {
		return "linear-" + m.ModelVersion
	}
	return "linear"
}

// Score computes the phishing probability for a raw URL and the top
// per-feature contributions that explain it.
func (m *LinearModel) Score(rawURL string) (*Verdict, error) {
	features := ExtractFeatures(rawURL)

	z := m.Intercept
	impacts := make([]Impact, 0, len(features))
	for i, x := range features {
		c := m.Coefficients[i] * x
		z += c
		if c != 0 {
			impacts = append(impacts, Impact{
				Feature:      m.Features[i],
				Value:        x,
				Contribution: c,
			})
		}
	}

	sort.Slice(impacts, func(a, b int) bool {
		return math.Abs(impacts[a].Contribution) > math.Abs(impacts[b].Contribution)
	})
	if len(impacts) > maxImpacts {
		impacts = impacts[:maxImpacts]
	}

	p := sigmoid(z)
	return &Verdict{
		Probability: p,
		Threshold:   m.Threshold,
		Label:       labelFor(p, m.Threshold),
		TopImpacts:  impacts,
		Backend:     m.Name(),
	}, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
