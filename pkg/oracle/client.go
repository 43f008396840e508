package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/httputil"
)

const systemPrompt = `You are a security analyst reviewing the decoded payload of a QR code.
Explain in plain language what the payload does and what risks a person scanning it would face.

Respond with JSON only:
{
  "summary": "one or two sentences describing the payload and its risk",
  "suspicious_signals": ["observable facts that look hostile"],
  "benign_signals": ["observable facts that look legitimate"],
  "recommendation": "one sentence of advice for the person who scanned it"
}

Do NOT output numeric scores, ratings, or verdict labels. Describe, do not grade.`

// Client consults an OpenAI-compatible chat completion endpoint. Any
// failure degrades to the fixed unavailable advisory.
type Client struct {
	http     *http.Client
	provider config.OracleProvider
	baseURL  string
	apiKey   string
	model    string
	timeout  time.Duration
}

// NewClient resolves the provider's endpoint the same way for every
// OpenAI-compatible backend; only the base URL and auth differ.
func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.OracleBaseURL
	if baseURL == "" {
		switch cfg.OracleProvider {
		case config.OracleGroq:
			baseURL = "https://api.groq.com/openai/v1"
		case config.OracleOpenRouter:
			baseURL = "https://openrouter.ai/api/v1"
		case config.OracleOllama:
			baseURL = "http://localhost:11434/v1"
		}
	}
	return &Client{
		http:     httputil.Client(httputil.TierSlow),
		provider: cfg.OracleProvider,
		baseURL:  baseURL,
		apiKey:   cfg.OracleAPIKey,
		model:    cfg.OracleModel,
		timeout:  cfg.OracleTimeout,
	}
}

// Name identifies the provider in results and logs.
func (c *Client) Name() string { return string(c.provider) }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// advisoryPayload is the JSON shape the prompt requests.
type advisoryPayload struct {
	Summary           string   `json:"summary"`
	SuspiciousSignals []string `json:"suspicious_signals"`
	BenignSignals     []string `json:"benign_signals"`
	Recommendation    string   `json:"recommendation"`
}

// Consult asks the model about one payload. It never returns an error:
// failures are logged and collapse to the unavailable advisory so the
// pipeline's behavior does not depend on oracle health.
func (c *Client) Consult(ctx context.Context, payloadText, payloadType string) *Advisory {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	user := fmt.Sprintf("PAYLOAD_TYPE: %s\nPAYLOAD:\n%s", payloadType, payloadText)

	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		slog.Warn("oracle consultation failed", "provider", c.provider, "error", err)
		return unavailableAdvisory(c.Name())
	}

	return c.parseAdvisory(content)
}

// parseAdvisory extracts the structured advisory, falling back to treating
// the whole response as a free-text summary when the model ignored the
// JSON instruction. Either way the text is stripped of numeric verdicts.
func (c *Client) parseAdvisory(content string) *Advisory {
	var p advisoryPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &p); err != nil || p.Summary == "" {
		free := sanitizeAdvice(content)
		if free == "" {
			return unavailableAdvisory(c.Name())
		}
		return &Advisory{Summary: free, Provider: c.Name()}
	}

	summary := sanitizeAdvice(p.Summary)
	if summary == "" {
		return unavailableAdvisory(c.Name())
	}
	return &Advisory{
		Summary:           summary,
		SuspiciousSignals: sanitizeAll(p.SuspiciousSignals),
		BenignSignals:     sanitizeAll(p.BenignSignals),
		Recommendation:    sanitizeAdvice(p.Recommendation),
		Provider:          c.Name(),
	}
}

// extractJSON strips markdown fences and prose around the JSON object.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

func (c *Client) complete(ctx context.Context, msgs []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer httputil.DrainAndClose(resp.Body)

	raw, err := httputil.ReadResponseBody(resp.Body, 2*1024*1024)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API error %d: %s", c.provider, resp.StatusCode, string(raw))
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
