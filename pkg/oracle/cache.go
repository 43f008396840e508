package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultAdvisoryTTL bounds how long a cached advisory stays fresh. Payload
// reputations shift, so advisories are not kept indefinitely.
const defaultAdvisoryTTL = 6 * time.Hour

// CachedConsultant wraps a consultant with a redis cache keyed on the
// payload hash. QR campaigns reuse the same payload across thousands of
// codes; caching spares one LLM round-trip per repeat.
type CachedConsultant struct {
	inner Consultant
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedConsultant connects to redis lazily; an unreachable server just
// means every lookup misses.
func NewCachedConsultant(inner Consultant, addr string, ttl time.Duration) *CachedConsultant {
	if ttl <= 0 {
		ttl = defaultAdvisoryTTL
	}
	return &CachedConsultant{
		inner: inner,
		rdb:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl:   ttl,
	}
}

func (c *CachedConsultant) Name() string { return c.inner.Name() }

func advisoryKey(payloadText, payloadType string) string {
	sum := sha256.Sum256([]byte(payloadType + "\x00" + payloadText))
	return "quishield:advisory:" + hex.EncodeToString(sum[:])
}

// Consult returns the cached advisory when present, otherwise consults the
// wrapped client and stores the result. Unavailable advisories are never
// cached; the next scan should retry the provider.
func (c *CachedConsultant) Consult(ctx context.Context, payloadText, payloadType string) *Advisory {
	key := advisoryKey(payloadText, payloadType)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached Advisory
		if json.Unmarshal(raw, &cached) == nil && !cached.Unavailable {
			return &cached
		}
	} else if err != redis.Nil {
		slog.Debug("advisory cache read failed", "error", err)
	}

	adv := c.inner.Consult(ctx, payloadText, payloadType)
	if adv.Unavailable {
		return adv
	}

	if raw, err := json.Marshal(adv); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			slog.Debug("advisory cache write failed", "error", err)
		}
	}
	return adv
}

// Close releases the redis connection pool.
func (c *CachedConsultant) Close() error {
	return c.rdb.Close()
}
