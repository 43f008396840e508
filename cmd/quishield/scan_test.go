package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quishield/quishield/pkg/engine"
	"github.com/quishield/quishield/pkg/payload"
)

func blockResult() *engine.Result {
	return &engine.Result{
		ReportID:    "rpt-scan",
		Payload:     "http://paypa1-login.com/verify",
		Type:        payload.TypeURL,
		GeneratedAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		Decision: engine.Decision{
			RiskScore: 100, Category: "CRITICAL", RecommendedAction: engine.ActionBlock,
		},
	}
}

func TestWriteScanOutputFlushesFile(t *testing.T) {
	// The report file must be fully written and closed when this returns;
	// the caller exits the process right after on BLOCK.
	path := filepath.Join(t.TempDir(), "report.md")
	if err := writeScanOutput(blockResult(), false, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(raw), "CRITICAL") {
		t.Errorf("report file missing the decision, got %q", raw)
	}
}

func TestWriteScanOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeScanOutput(blockResult(), true, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if doc["report_id"] != "rpt-scan" {
		t.Errorf("report_id = %v", doc["report_id"])
	}
}
