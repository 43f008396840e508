package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/evidence"
	"github.com/quishield/quishield/pkg/ml"
	"github.com/quishield/quishield/pkg/oracle"
	"github.com/quishield/quishield/pkg/payload"
	"github.com/quishield/quishield/pkg/rules"
)

// Analyzer runs the full pipeline for one payload at a time. It is safe
// for concurrent use; all mutable state lives in per-call values.
type Analyzer struct {
	cfg      *config.Config
	rules    *rules.Engine
	resolver *domain.Resolver
	loader   *ml.Loader
	oracle   oracle.Consultant
	evidence evidence.Capturer
	lures    *ml.LureMatcher
}

// Option overrides a collaborator, used by serve mode wiring and tests.
type Option func(*Analyzer)

func WithOracle(c oracle.Consultant) Option    { return func(a *Analyzer) { a.oracle = c } }
func WithEvidence(c evidence.Capturer) Option  { return func(a *Analyzer) { a.evidence = c } }
func WithResolver(r *domain.Resolver) Option   { return func(a *Analyzer) { a.resolver = r } }
func WithLureMatcher(m *ml.LureMatcher) Option { return func(a *Analyzer) { a.lures = m } }

// New wires an analyzer from configuration. The scorer loads lazily on the
// first scan; oracle and evidence collaborators are built eagerly but do
// no I/O until used.
func New(cfg *config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:      cfg,
		rules:    rules.NewEngine(cfg.Policy),
		resolver: domain.NewResolver(cfg.Policy, cfg.ResolveTimeout),
		loader:   ml.NewLoader(cfg),
		oracle:   oracle.FromConfig(cfg),
		evidence: evidence.FromConfig(cfg),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies, scores, and bands one payload under a generated
// report ID.
func (a *Analyzer) Analyze(ctx context.Context, raw string) *Result {
	return a.AnalyzeWithID(ctx, raw, "")
}

// newReportID builds a sortable report identifier: UTC timestamp plus a
// short random suffix.
func newReportID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// AnalyzeWithID runs the pipeline under a caller-supplied report ID, or a
// generated timestamp+suffix ID when empty. It never returns an error:
// every stage failure narrows the evidence but still yields a decision,
// logged with the report ID for correlation.
func (a *Analyzer) AnalyzeWithID(ctx context.Context, raw, reportID string) *Result {
	if reportID == "" {
		reportID = newReportID()
	}
	res := &Result{
		ReportID:    reportID,
		Payload:     raw,
		GeneratedAt: time.Now().UTC(),
		Findings:    []rules.Finding{},
	}

	normalized := payload.Normalize(raw)
	res.Type = payload.Classify(normalized)

	if res.Type == payload.TypeEmpty {
		res.Decision = Decision{
			RiskScore: 0,
			Reasons:   []string{"Payload is empty; nothing to analyze"},
		}
		res.Decision.Category, res.Decision.RecommendedAction = band(a.cfg, 0)
		return res
	}

	// Target resolution. vCards are analyzed through their embedded URL.
	targetURL := normalized
	if res.Type == payload.TypeVCard {
		if embedded, ok := payload.ExtractEmbeddedURL(normalized); ok {
			targetURL = embedded
		} else {
			targetURL = ""
		}
	}
	if res.Type == payload.TypeURL || (res.Type == payload.TypeVCard && targetURL != "") {
		res.DomainInfo = a.resolver.Resolve(ctx, targetURL, res.Type)
	}

	// Deterministic rules.
	ruleResult := a.rules.Detect(normalized, res.Type, res.DomainInfo)
	res.Findings = append(res.Findings, ruleResult.Findings...)
	res.BenignSignals = append(res.BenignSignals, ruleResult.BenignSignals...)
	score := ruleResult.ScoreDelta

	// Statistical scorer, URL targets only.
	hasScorer := false
	if res.Type == payload.TypeURL || (res.Type == payload.TypeVCard && targetURL != "") {
		if scorer, err := a.loader.Scorer(); err == nil {
			hasScorer = true
			if v, err := scorer.Score(targetURL); err == nil {
				res.MLVerdict = v
			} else {
				slog.Warn("URL scoring failed", "report_id", res.ReportID, "error", err)
				hasScorer = false
			}
		}
		if !hasScorer {
			res.BenignSignals = append(res.BenignSignals, "model unavailable, rules-only mode")
		}
	}

	assessment := assessModel(a.cfg.Policy, res.MLVerdict, ruleResult.ScoreDelta)
	score += assessment.delta

	// Semantic lure matching, when configured. Advisory weight only: the
	// match lands as a medium finding like any other detector's.
	if a.lures != nil && a.lures.Ready() {
		if match, err := a.lures.Match(ctx, normalized); err == nil && match != nil {
			res.LureMatch = match
			f := rules.Finding{
				ID:       "semantic_lure_match",
				Title:    "Payload paraphrases a known lure",
				Severity: rules.SeverityMedium,
				Reason: "Wording closely matches a known " + match.Category +
					" phishing lure: \"" + match.Phrase + "\"",
			}
			res.Findings = append(res.Findings, f)
			score += a.cfg.Policy.Weights.Medium
		}
	}

	// Oracle consultation and evidence capture are independent of each
	// other and of the score; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)

	if needsOracle(res.Type, hasScorer, assessment) {
		g.Go(func() error {
			res.Oracle = a.oracle.Consult(gctx, normalized, string(res.Type))
			return nil
		})
	} else {
		res.BenignSignals = append(res.BenignSignals, "AI skipped, model confident")
	}
	if needsEvidence(a.cfg.Policy, res.DomainInfo, ruleResult.ScoreDelta, res.MLVerdict) {
		g.Go(func() error {
			res.EvidenceRef = a.evidence.Capture(gctx, res.ReportID, targetURL)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; Wait just joins them

	res.Decision.RiskScore = clampScore(score)
	res.Decision.Category, res.Decision.RecommendedAction = band(a.cfg, res.Decision.RiskScore)
	res.Decision.Reasons = buildReasons(res.Findings, res.MLVerdict, res.Oracle)

	slog.Info("payload analyzed",
		"report_id", res.ReportID,
		"type", res.Type,
		"risk_score", res.Decision.RiskScore,
		"category", res.Decision.Category,
		"action", res.Decision.RecommendedAction,
		"findings", len(res.Findings))
	return res
}

// ScorerAvailable reports whether the statistical backend loaded. Surfaced
// by the models endpoint and CLI.
func (a *Analyzer) ScorerAvailable() bool {
	return a.loader.Available()
}

// ScorerName returns the loaded backend name, or empty when unavailable.
func (a *Analyzer) ScorerName() string {
	if s, err := a.loader.Scorer(); err == nil {
		return s.Name()
	}
	return ""
}
