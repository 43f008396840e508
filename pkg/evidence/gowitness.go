package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/quishield/quishield/pkg/httputil"
)

// GowitnessCapturer shells out to a local gowitness binary. Suitable for
// air-gapped deployments where no capture service exists; artifacts land
// on the local filesystem under the evidence directory.
type GowitnessCapturer struct {
	binary  string
	dir     string
	timeout time.Duration
	sem     *httputil.Semaphore
}

func NewGowitnessCapturer(binary, dir string, timeout time.Duration, maxJobs int) *GowitnessCapturer {
	if binary == "" {
		binary = "gowitness"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if maxJobs <= 0 {
		maxJobs = maxConcurrentCaptures
	}
	return &GowitnessCapturer{
		binary:  binary,
		dir:     dir,
		timeout: timeout,
		sem:     httputil.NewSemaphore(maxJobs),
	}
}

// Capture schedules a single-URL gowitness run and returns the local path
// of the screenshot directory for this report.
func (g *GowitnessCapturer) Capture(_ context.Context, reportID, url string) string {
	outDir := filepath.Join(g.dir, reportID)

	ok := spawn(g.sem, reportID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			slog.Warn("evidence directory creation failed", "report_id", reportID, "error", err)
			return
		}

		cmd := exec.CommandContext(ctx, g.binary,
			"scan", "single",
			"-u", url,
			"-s", outDir,
			"-T", "60",
			"--screenshot-format", "png",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			slog.Warn("gowitness capture failed",
				"report_id", reportID, "error", err, "output", string(out))
		}
	})
	if !ok {
		return ""
	}
	return fmt.Sprintf("file://%s", outDir)
}
