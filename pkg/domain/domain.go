// Package domain extracts and normalizes the domain of URL-like payloads,
// classifies it against the configured allowlist/reserved/shortener sets,
// and optionally checks whether the hostname resolves. Every failure mode
// degrades to a lower-information Info, never an error.
package domain

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/payload"
)

// Resolution is the tri-state outcome of the hostname check. Allowlisted and
// reserved hosts are never resolved, so "unknown" is a normal state.
type Resolution string

const (
	ResolvedYes     Resolution = "true"
	ResolvedNo      Resolution = "false"
	ResolvedUnknown Resolution = "unknown"
)

// Info is the derived view of a URL target. Read-only after construction.
// Host is empty when parsing failed; detectors must treat that as
// insufficient evidence, not as an attack signal.
type Info struct {
	RawURL      string              `json:"raw_url"`
	Host        string              `json:"host"`
	Path        string              `json:"path"`
	Scheme      string              `json:"scheme"`
	QueryParams map[string][]string `json:"query_params,omitempty"`
	Resolvable  Resolution          `json:"resolvable"`
	Allowlisted bool                `json:"allowlisted"`
	Reserved    bool                `json:"reserved"`
	IsShortener bool                `json:"is_shortener"`
}

// LookupFunc resolves a hostname to addresses. Injectable for tests.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver builds Info values for URL-like payloads.
type Resolver struct {
	policy  *config.Policy
	lookup  LookupFunc
	timeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup replaces the DNS lookup function (used by tests and by
// offline deployments that disable resolution).
func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) { r.lookup = fn }
}

// NewResolver creates a Resolver bound to a policy. A zero timeout disables
// hostname resolution entirely: Resolvable stays unknown.
func NewResolver(policy *config.Policy, timeout time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		policy:  policy,
		timeout: timeout,
		lookup: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve extracts domain information from a URL-like payload. Returns nil
// for payload types that carry no URL. Parse failures return a degraded
// Info with an empty Host rather than an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, t payload.Type) *Info {
	if t != payload.TypeURL && t != payload.TypeVCard {
		return nil
	}

	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil
	}

	info := &Info{
		RawURL:     raw,
		Resolvable: ResolvedUnknown,
	}

	// Tolerate bare domains: parsing "paypa1-login.com/verify" without a
	// scheme puts everything in Path, so prefix a default scheme first.
	target := raw
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return info
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	info.Host = host
	info.Path = u.Path
	info.Scheme = strings.ToLower(u.Scheme)
	if q := u.Query(); len(q) > 0 {
		info.QueryParams = q
	}

	info.Allowlisted = r.policy.Allowlisted(host)
	info.Reserved = r.policy.ReservedHost(host)
	info.IsShortener = r.policy.Shortener(host)

	// Allowlisted and reserved hosts are trusted or non-routable; resolving
	// them adds latency and noise without changing the verdict.
	if info.Allowlisted || info.Reserved || r.timeout <= 0 {
		return info
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if addrs, err := r.lookup(lookupCtx, host); err != nil || len(addrs) == 0 {
		info.Resolvable = ResolvedNo
	} else {
		info.Resolvable = ResolvedYes
	}
	return info
}
