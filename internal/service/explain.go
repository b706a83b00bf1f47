package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// Explainer produces a human-readable rationale for a risk finding.
type Explainer interface {
	Explain(ctx context.Context, anchor model.RiskAnchor, highlights []string) (string, error)
}

// ExplanationClient talks to the risk explanation service.
type ExplanationClient struct {
	endpoint string
	cfg      *clientConfig
}

// NewExplanationClient creates an explanation client for the given endpoint URL.
func NewExplanationClient(endpoint string, opts ...Option) *ExplanationClient {
	return &ExplanationClient{
		endpoint: endpoint,
		cfg:      newClientConfig(opts...),
	}
}

// explainRequest is the wire shape of an explanation request.
type explainRequest struct {
	Text       string   `json:"text"`
	Highlights []string `json:"highlights,omitempty"`
	Risk       string   `json:"risk"`
	Score      float64  `json:"score"`
}

// Explain asks the service why the anchored text scored the way it did.
// An empty explanation from the service is returned as-is; the caller
// decides whether to fall back to a generic message.
func (c *ExplanationClient) Explain(ctx context.Context, anchor model.RiskAnchor, highlights []string) (string, error) {
	if c.endpoint == "" {
		return "", ErrNoEndpoint
	}

	payload, err := json.Marshal(explainRequest{
		Text:       anchor.Text,
		Highlights: highlights,
		Risk:       anchor.Label,
		Score:      anchor.Score,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode explanation request: %w", err)
	}

	body, err := c.cfg.postJSON(ctx, c.endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("explanation service: %w", err)
	}

	return gjson.GetBytes(body, "explanation").String(), nil
}
