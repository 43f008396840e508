// Package evidence captures visual proof of what a URL target actually
// serves. Capture is fire-and-forget: the analysis result records only a
// reference to where the evidence will land, and a capture failure is
// invisible to the scan that requested it.
package evidence

import (
	"context"
	"log/slog"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/httputil"
)

// Capturer takes a screenshot (or equivalent artifact) of one URL and
// returns a reference to where it is stored. The reference is returned
// immediately; capture itself runs in the background.
type Capturer interface {
	// Capture schedules a capture of url under the given report ID and
	// returns the evidence reference. An empty reference means capture was
	// declined (disabled, or the background queue is full).
	Capture(ctx context.Context, reportID, url string) string
}

// maxConcurrentCaptures bounds the background capture goroutines. Captures
// beyond the bound are dropped, not queued; a scan flood must not pile up
// headless-browser work.
const maxConcurrentCaptures = 8

// Noop declines every capture.
type Noop struct{}

func (Noop) Capture(ctx context.Context, reportID, url string) string { return "" }

// FromConfig builds the configured capturer.
func FromConfig(cfg *config.Config) Capturer {
	switch cfg.EvidenceMode {
	case config.EvidenceService:
		if cfg.EvidenceServiceURL == "" {
			slog.Warn("evidence mode 'service' requires QUISHIELD_EVIDENCE_URL, captures disabled")
			return Noop{}
		}
		return NewServiceCapturer(cfg.EvidenceServiceURL, cfg.EvidenceTimeout, cfg.MaxCaptureJobs)
	case config.EvidenceGowitness:
		return NewGowitnessCapturer(cfg.GowitnessPath, cfg.EvidenceDir, cfg.EvidenceTimeout, cfg.MaxCaptureJobs)
	default:
		return Noop{}
	}
}

// spawn runs fn in the background under the shared capture bound. Returns
// false when the bound is full and the capture was dropped.
func spawn(sem *httputil.Semaphore, reportID string, fn func()) bool {
	if !sem.TryAcquire() {
		slog.Warn("evidence capture dropped, queue full",
			"report_id", reportID, "dropped_total", sem.DroppedCount())
		return false
	}
	go func() {
		defer sem.Release()
		fn()
	}()
	return true
}
