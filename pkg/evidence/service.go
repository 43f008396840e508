package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quishield/quishield/pkg/httputil"
)

// ServiceCapturer posts capture jobs to an external screenshot service.
// The service owns storage; the reference is the artifact URL it will
// write to for the given report ID.
type ServiceCapturer struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	sem     *httputil.Semaphore
}

func NewServiceCapturer(baseURL string, timeout time.Duration, maxJobs int) *ServiceCapturer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxJobs <= 0 {
		maxJobs = maxConcurrentCaptures
	}
	return &ServiceCapturer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httputil.Client(httputil.TierMedium),
		timeout: timeout,
		sem:     httputil.NewSemaphore(maxJobs),
	}
}

type captureRequest struct {
	ReportID string `json:"report_id"`
	URL      string `json:"url"`
}

// Capture schedules the capture and returns the artifact reference
// immediately. The background call uses its own timeout; the scan's
// context must not govern work that outlives the scan.
func (s *ServiceCapturer) Capture(_ context.Context, reportID, url string) string {
	ref := fmt.Sprintf("%s/artifacts/%s.png", s.baseURL, reportID)

	ok := spawn(s.sem, reportID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		body, err := json.Marshal(captureRequest{ReportID: reportID, URL: url})
		if err != nil {
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/capture", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			slog.Warn("evidence capture failed", "report_id", reportID, "error", err)
			return
		}
		defer httputil.DrainAndClose(resp.Body)
		if err := httputil.CheckResponse(resp, "evidence service"); err != nil {
			slog.Warn("evidence capture rejected", "report_id", reportID, "error", err)
		}
	})
	if !ok {
		return ""
	}
	return ref
}
