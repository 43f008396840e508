package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/ml"
	"github.com/quishield/quishield/pkg/oracle"
	"github.com/quishield/quishield/pkg/payload"
)

type fakeOracle struct {
	consulted atomic.Int64
	advisory  *oracle.Advisory
}

func (f *fakeOracle) Consult(ctx context.Context, payloadText, payloadType string) *oracle.Advisory {
	f.consulted.Add(1)
	if f.advisory != nil {
		return f.advisory
	}
	return &oracle.Advisory{Summary: "looks hostile", Provider: "fake"}
}

func (f *fakeOracle) Name() string { return "fake" }

type fakeCapturer struct {
	captured atomic.Int64
	lastURL  string
}

func (f *fakeCapturer) Capture(ctx context.Context, reportID, url string) string {
	f.captured.Add(1)
	f.lastURL = url
	return "evidence://" + reportID
}

// writeModel produces a linear artifact whose only active coefficient is
// keyword_hits, so URL probabilities are controlled by keyword count:
// 0 hits -> ~0.05 (confident benign), 3+ hits -> >0.95 (confident phishing).
func writeModel(t *testing.T) string {
	t.Helper()

	coeffs := make([]string, ml.NumFeatures)
	for i := range coeffs {
		coeffs[i] = "0.0"
	}
	coeffs[ml.NumFeatures-1] = "2.0"

	names := make([]string, ml.NumFeatures)
	copy(names, ml.FeatureNames[:])

	artifact := fmt.Sprintf("model_version: \"test\"\nfeatures: [%s]\ncoefficients: [%s]\nintercept: -3.0\nthreshold: 0.31\n",
		strings.Join(names, ", "), strings.Join(coeffs, ", "))

	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

type fixture struct {
	analyzer *Analyzer
	oracle   *fakeOracle
	evidence *fakeCapturer
}

// newFixture builds an analyzer with a controllable DNS stub and fake
// collaborators. resolvable governs what every lookup reports.
func newFixture(t *testing.T, withModel, resolvable bool) *fixture {
	t.Helper()

	cfg := config.NewOfflineConfig()
	if withModel {
		cfg.ModelPath = writeModel(t)
		cfg.ModelKind = config.ModelKindLinear
	}

	lookup := func(ctx context.Context, host string) ([]string, error) {
		if resolvable {
			return []string{"203.0.113.10"}, nil
		}
		return nil, fmt.Errorf("no such host")
	}
	resolver := domain.NewResolver(cfg.Policy, 2*time.Second, domain.WithLookup(lookup))

	fo := &fakeOracle{}
	fc := &fakeCapturer{}
	return &fixture{
		analyzer: New(cfg, WithOracle(fo), WithEvidence(fc), WithResolver(resolver)),
		oracle:   fo,
		evidence: fc,
	}
}

func TestAnalyzeAllowlistedURL(t *testing.T) {
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "https://github.com/golang/go")

	if res.Type != payload.TypeURL {
		t.Fatalf("type = %s, want url", res.Type)
	}
	if len(res.Findings) != 0 {
		t.Errorf("allowlisted URL must have no findings, got %+v", res.Findings)
	}
	if res.Decision.RiskScore != 0 {
		t.Errorf("score = %d, want 0 (clamped)", res.Decision.RiskScore)
	}
	if res.Decision.Category != "SAFE" || res.Decision.RecommendedAction != ActionAllow {
		t.Errorf("decision = %s/%s, want SAFE/ALLOW", res.Decision.Category, res.Decision.RecommendedAction)
	}
	if fx.evidence.captured.Load() != 0 {
		t.Errorf("allowlisted URL must never trigger evidence capture")
	}
	if len(res.BenignSignals) == 0 {
		t.Errorf("allowlisted URL must carry benign signals")
	}
}

func TestAnalyzeOpenWifi(t *testing.T) {
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "WIFI:T:nopass;S:FreeAirportWifi;;")

	if res.Type != payload.TypeWifi {
		t.Fatalf("type = %s, want wifi", res.Type)
	}
	if res.Decision.RiskScore == 0 {
		t.Errorf("open network must score above zero")
	}
	found := false
	for _, f := range res.Findings {
		if f.ID == "wifi_unsecured" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing wifi_unsecured finding: %+v", res.Findings)
	}
	if fx.oracle.consulted.Load() != 1 {
		t.Errorf("non-URL payloads must consult the oracle")
	}
	if res.MLVerdict != nil {
		t.Errorf("wifi payloads must not be scored by the URL model")
	}
}

func TestAnalyzePhishingURL(t *testing.T) {
	fx := newFixture(t, true, false)
	res := fx.analyzer.Analyze(context.Background(), "http://paypa1-login.com/verify-account-update")

	if res.Decision.Category != "MALICIOUS" && res.Decision.Category != "CRITICAL" {
		t.Errorf("category = %s, want MALICIOUS or CRITICAL", res.Decision.Category)
	}
	if res.Decision.RecommendedAction != ActionBlock {
		t.Errorf("action = %s, want BLOCK", res.Decision.RecommendedAction)
	}

	ids := map[string]bool{}
	for _, f := range res.Findings {
		ids[f.ID] = true
	}
	for _, want := range []string{"url_brand_impersonation", "url_no_tls", "url_unresolvable"} {
		if !ids[want] {
			t.Errorf("missing finding %s, got %v", want, ids)
		}
	}

	if res.MLVerdict == nil || res.MLVerdict.Label != "phishing" {
		t.Errorf("model verdict = %+v, want phishing", res.MLVerdict)
	}
	if fx.evidence.captured.Load() != 1 {
		t.Errorf("suspicious off-allowlist URL must capture evidence")
	}
	if res.EvidenceRef == "" {
		t.Errorf("evidence reference missing from result")
	}
}

func TestOverrideSafetyConsultsOracle(t *testing.T) {
	// The model sees no lure keywords here (probability ~0.05, confidently
	// benign on its own), but the rules cross the suspicious floor via the
	// shortener and dash-stuffed host. The override must force an oracle
	// consultation despite the model's confidence.
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "https://one-two-three-four.bit.ly/x")

	if res.MLVerdict == nil || res.MLVerdict.Probability > 0.15 {
		t.Fatalf("test premise broken: model verdict %+v must be confidently benign", res.MLVerdict)
	}
	if res.Decision.RiskScore < 35 {
		t.Fatalf("test premise broken: rule score %d must cross the suspicious floor", res.Decision.RiskScore)
	}
	if fx.oracle.consulted.Load() != 1 {
		t.Errorf("rule score past the floor must void model confidence and consult the oracle")
	}
}

func TestConfidentURLSkipsOracle(t *testing.T) {
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "https://plain-site.net/page")

	if res.MLVerdict == nil || res.MLVerdict.Probability > 0.15 {
		t.Fatalf("test premise broken: verdict %+v must be confidently benign", res.MLVerdict)
	}
	if fx.oracle.consulted.Load() != 0 {
		t.Errorf("confidently benign URL with clean rules must skip the oracle")
	}
	skipped := false
	for _, s := range res.BenignSignals {
		if s == "AI skipped, model confident" {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("oracle skip must be recorded as a signal, got %v", res.BenignSignals)
	}
}

func TestRulesOnlyModeConsultsOracle(t *testing.T) {
	fx := newFixture(t, false, true)
	res := fx.analyzer.Analyze(context.Background(), "https://plain-site.net/page")

	if res.MLVerdict != nil {
		t.Fatalf("no model configured, verdict must be nil")
	}
	hasSignal := false
	for _, s := range res.BenignSignals {
		if s == "model unavailable, rules-only mode" {
			hasSignal = true
		}
	}
	if !hasSignal {
		t.Errorf("rules-only mode must be recorded as a signal, got %v", res.BenignSignals)
	}
	if fx.oracle.consulted.Load() != 1 {
		t.Errorf("URL without a scorer must consult the oracle")
	}
}

func TestAnalyzeEmptyPayload(t *testing.T) {
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "   \n\t ")

	if res.Type != payload.TypeEmpty {
		t.Fatalf("type = %s, want empty", res.Type)
	}
	if res.Decision.RiskScore != 0 || res.Decision.RecommendedAction != ActionAllow {
		t.Errorf("empty payload must be 0/ALLOW, got %d/%s",
			res.Decision.RiskScore, res.Decision.RecommendedAction)
	}
	if fx.oracle.consulted.Load() != 0 || fx.evidence.captured.Load() != 0 {
		t.Errorf("empty payload must touch neither oracle nor evidence")
	}
}

func TestAnalyzeMalformedURL(t *testing.T) {
	fx := newFixture(t, true, true)
	res := fx.analyzer.Analyze(context.Background(), "http://[invalid")

	if res.Type != payload.TypeURL {
		t.Fatalf("type = %s, want url", res.Type)
	}
	if res.Decision.RecommendedAction == "" {
		t.Errorf("malformed URL must still produce a decision")
	}
	found := false
	for _, f := range res.Findings {
		if f.ID == "url_unparseable" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing url_unparseable finding: %+v", res.Findings)
	}
}

func TestReasonsOrder(t *testing.T) {
	fx := newFixture(t, true, false)
	res := fx.analyzer.Analyze(context.Background(), "http://paypa1-login.com/verify")

	if len(res.Decision.Reasons) < 2 {
		t.Fatalf("expected multiple reasons, got %v", res.Decision.Reasons)
	}
	if !strings.Contains(strings.Join(res.Decision.Reasons, "\n"), "URL model") {
		t.Errorf("model reason missing: %v", res.Decision.Reasons)
	}
	if strings.HasPrefix(res.Decision.Reasons[0], "URL model") || strings.HasPrefix(res.Decision.Reasons[0], "Advisory") {
		t.Errorf("finding reasons must come first, got %q", res.Decision.Reasons[0])
	}
}

func TestVCardEmbeddedURLFlowsThroughPipeline(t *testing.T) {
	fx := newFixture(t, true, false)
	card := "BEGIN:VCARD\nVERSION:3.0\nFN:Support\nURL:http://paypa1-login.com/verify\nEND:VCARD"
	res := fx.analyzer.Analyze(context.Background(), card)

	if res.Type != payload.TypeVCard {
		t.Fatalf("type = %s, want vcard", res.Type)
	}
	if res.DomainInfo == nil || res.DomainInfo.Host != "paypa1-login.com" {
		t.Errorf("embedded URL must be resolved, got %+v", res.DomainInfo)
	}
	if res.MLVerdict == nil {
		t.Errorf("embedded URL must be scored")
	}
	if fx.evidence.captured.Load() != 1 || fx.evidence.lastURL != "http://paypa1-login.com/verify" {
		t.Errorf("evidence must target the embedded URL, got %q", fx.evidence.lastURL)
	}
}

func TestUniqueReportIDs(t *testing.T) {
	fx := newFixture(t, false, true)
	a := fx.analyzer.Analyze(context.Background(), "hello")
	b := fx.analyzer.Analyze(context.Background(), "hello")
	if a.ReportID == "" || a.ReportID == b.ReportID {
		t.Errorf("report IDs must be unique and non-empty: %q vs %q", a.ReportID, b.ReportID)
	}
}

func TestCallerSuppliedReportID(t *testing.T) {
	fx := newFixture(t, false, true)
	res := fx.analyzer.AnalyzeWithID(context.Background(), "hello", "scan-42")
	if res.ReportID != "scan-42" {
		t.Errorf("ReportID = %q, want caller-supplied scan-42", res.ReportID)
	}
}
