// Package engine orchestrates the analysis pipeline: classify the payload,
// resolve its target, run the rule detectors and the statistical scorer,
// then fuse everything into a banded decision. Each stage degrades
// independently; the engine always produces a decision.
package engine

import (
	"time"

	"github.com/quishield/quishield/pkg/domain"
	"github.com/quishield/quishield/pkg/ml"
	"github.com/quishield/quishield/pkg/oracle"
	"github.com/quishield/quishield/pkg/payload"
	"github.com/quishield/quishield/pkg/rules"
)

// Decision is the banded outcome of a scan.
type Decision struct {
	RiskScore         int      `json:"risk_score"`
	Category          string   `json:"category"`
	RecommendedAction string   `json:"recommended_action"`
	Reasons           []string `json:"reasons"`
}

// Recommended actions, from least to most restrictive.
const (
	ActionAllow   = "ALLOW"
	ActionSandbox = "SANDBOX_PREVIEW"
	ActionBlock   = "BLOCK"
)

// Result is the full analysis document for one payload. Field names are
// part of the API contract; clients and the history store key on them.
type Result struct {
	ReportID      string           `json:"report_id"`
	Payload       string           `json:"payload"`
	Type          payload.Type     `json:"type"`
	DomainInfo    *domain.Info     `json:"domain_info,omitempty"`
	Findings      []rules.Finding  `json:"findings"`
	BenignSignals []string         `json:"benign_signals,omitempty"`
	MLVerdict     *ml.Verdict      `json:"ml_verdict,omitempty"`
	LureMatch     *ml.LureMatch    `json:"lure_match,omitempty"`
	Oracle        *oracle.Advisory `json:"oracle,omitempty"`
	Decision      Decision         `json:"decision"`
	EvidenceRef   string           `json:"evidence_reference,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
