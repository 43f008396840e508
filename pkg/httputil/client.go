// Package httputil provides the shared HTTP plumbing for the engine's
// outbound calls: pooled clients in timeout tiers, bounded body reads, and
// a drop-on-full semaphore for fire-and-forget work.
package httputil

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize caps response body reads so a hostile or broken upstream
// cannot exhaust memory.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// All tiers share one transport so connections are pooled across the
// oracle, embedding, and evidence clients.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier groups outbound calls by how long they may reasonably take.
type TimeoutTier int

const (
	// TierFast covers health checks and DNS-adjacent probes (5s).
	TierFast TimeoutTier = iota
	// TierMedium covers evidence capture and embedding calls (30s).
	TierMedium
	// TierSlow covers LLM oracle consultations (60s).
	TierSlow
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierFast:   5 * time.Second,
	TierMedium: 30 * time.Second,
	TierSlow:   60 * time.Second,
}

var (
	clientFast   *http.Client
	clientMedium *http.Client
	clientSlow   *http.Client
	clientOnce   sync.Once
)

func initClients() {
	clientFast = &http.Client{Timeout: timeoutDurations[TierFast], Transport: sharedTransport}
	clientMedium = &http.Client{Timeout: timeoutDurations[TierMedium], Transport: sharedTransport}
	clientSlow = &http.Client{Timeout: timeoutDurations[TierSlow], Transport: sharedTransport}
}

// Client returns the shared HTTP client for a timeout tier. Callers must
// not mutate the returned client.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(initClients)
	switch tier {
	case TierFast:
		return clientFast
	case TierSlow:
		return clientSlow
	default:
		return clientMedium
	}
}

// ReadResponseBody reads a response body with a size cap. Pass zero to use
// MaxResponseSize.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose consumes any remaining body so the connection returns to
// the pool, then closes it.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}

// CheckResponse converts a non-2xx response into an error that names the
// upstream service and includes a bounded slice of the body.
func CheckResponse(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := ReadResponseBody(resp.Body, 4096)
	return fmt.Errorf("%s returned %d: %s", service, resp.StatusCode, string(body))
}
