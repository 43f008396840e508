package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/quishield/quishield/pkg/httputil"
)

// LureMatch is the closest known lure phrase to a payload, with its cosine
// similarity and the campaign category it was seeded under.
type LureMatch struct {
	Phrase     string  `json:"phrase"`
	Category   string  `json:"category"`
	Similarity float32 `json:"similarity"`
}

// LureMatcher finds payloads that paraphrase known phishing lure wording.
// Keyword rules catch "verify your account" verbatim; the matcher also
// catches "we need you to re-confirm your profile" by embedding similarity.
// Entirely optional: it needs a local embedding endpoint (Ollama).
type LureMatcher struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	ready      bool
	threshold  float32
}

// seedLures are the reference phrases embedded at startup. Kept small on
// purpose; each query embeds the payload once and compares in-process.
var seedLures = []struct {
	Phrase   string
	Category string
}{
	{"your account has been suspended, verify your identity immediately", "account_takeover"},
	{"unusual sign-in activity detected, confirm your password now", "account_takeover"},
	{"your payment could not be processed, update your billing details", "payment"},
	{"you have a pending refund, claim it before it expires", "payment"},
	{"your package could not be delivered, reschedule and pay the customs fee", "delivery"},
	{"you have won a prize, complete the form to receive your reward", "prize"},
	{"final notice: your subscription will be cancelled unless you act today", "urgency"},
	{"security alert: a new device accessed your account", "account_takeover"},
	{"your tax refund is ready, submit your bank details to receive it", "payment"},
	{"scan to connect to free airport wifi and claim bonus data", "wifi_bait"},
}

// defaultLureThreshold is the similarity floor below which the best match
// is discarded as noise.
const defaultLureThreshold = 0.72

// NewLureMatcher builds the matcher against an Ollama-compatible embedding
// endpoint and seeds the reference collection. Any failure returns an
// error; callers treat a nil matcher as "feature off".
func NewLureMatcher(ctx context.Context, baseURL, model string) (*LureMatcher, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection("lure_phrases", nil, newOllamaEmbeddingFunc(baseURL, model))
	if err != nil {
		return nil, fmt.Errorf("create lure collection: %w", err)
	}

	docs := make([]chromem.Document, len(seedLures))
	for i, s := range seedLures {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("lure_%d", i),
			Content:  s.Phrase,
			Metadata: map[string]string{"category": s.Category},
		}
	}
	// One worker: seeding is startup-only and Ollama prefers serial load.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("seed lure phrases: %w", err)
	}

	return &LureMatcher{
		collection: collection,
		ready:      true,
		threshold:  defaultLureThreshold,
	}, nil
}

// Ready reports whether the matcher can serve queries.
func (m *LureMatcher) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Match returns the closest seeded lure above the similarity threshold, or
// nil when the payload resembles none of them.
func (m *LureMatcher) Match(ctx context.Context, text string) (*LureMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return nil, fmt.Errorf("lure matcher not initialized")
	}

	results, err := m.collection.Query(ctx, strings.ToLower(text), 1, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("lure query: %w", err)
	}
	if len(results) == 0 || results[0].Similarity < m.threshold {
		return nil, nil
	}

	best := results[0]
	return &LureMatch{
		Phrase:     best.Content,
		Category:   best.Metadata["category"],
		Similarity: best.Similarity,
	}, nil
}

// newOllamaEmbeddingFunc embeds text through Ollama's /api/embeddings.
func newOllamaEmbeddingFunc(baseURL, model string) chromem.EmbeddingFunc {
	client := httputil.Client(httputil.TierMedium)

	return func(ctx context.Context, text string) ([]float32, error) {
		payload, err := json.Marshal(map[string]string{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if err := httputil.CheckResponse(resp, "ollama embeddings"); err != nil {
			return nil, err
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		if len(result.Embedding) == 0 {
			return nil, fmt.Errorf("embedding response empty")
		}
		return result.Embedding, nil
	}
}
