package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// Scorer scores a batch of text candidates for scam risk.
// Implementations must treat the batch as atomic: either all items were
// scored (missing items default to zero downstream) or the call failed.
type Scorer interface {
	Score(ctx context.Context, lang string, candidates []model.Candidate) ([]model.ScoreResult, error)
}

// ScoreClient talks to the NLP risk scoring service.
type ScoreClient struct {
	endpoint string
	cfg      *clientConfig
}

// NewScoreClient creates a scoring client for the given endpoint URL.
// An empty endpoint is allowed at construction; calls will return
// ErrNoEndpoint so the misconfiguration is reported where it matters.
func NewScoreClient(endpoint string, opts ...Option) *ScoreClient {
	return &ScoreClient{
		endpoint: endpoint,
		cfg:      newClientConfig(opts...),
	}
}

// scoreItem is the wire shape of one batch item.
type scoreItem struct {
	ID       int               `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// scoreRequest is the wire shape of a scoring request.
type scoreRequest struct {
	Lang  string      `json:"lang"`
	Items []scoreItem `json:"items"`
}

// Score sends a candidate batch and returns normalized per-item results.
//
// The response is parsed leniently: the service is expected to return
// {"results":[{"id":..,"score":..,"risk":..,"highlights":[..]}]}, but
// scores in percentage form, missing risk labels, and extra fields are all
// tolerated. Items the service did not score are simply absent from the
// returned slice; the caller decides how to treat them (the scheduler
// scores them zero).
func (c *ScoreClient) Score(ctx context.Context, lang string, candidates []model.Candidate) ([]model.ScoreResult, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyBatch
	}

	req := scoreRequest{Lang: lang, Items: make([]scoreItem, 0, len(candidates))}
	for _, cand := range candidates {
		req.Items = append(req.Items, scoreItem{
			ID:   cand.ID,
			Text: cand.Text,
			Metadata: map[string]string{
				"kind":    cand.Kind.String(),
				"locator": cand.Locator.Path,
			},
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	body, err := c.cfg.postJSON(ctx, c.endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("scoring service: %w", err)
	}

	return parseScoreResponse(body), nil
}

// parseScoreResponse normalizes the service's loose response shape.
func parseScoreResponse(body []byte) []model.ScoreResult {
	raw := gjson.GetBytes(body, "results")
	results := make([]model.ScoreResult, 0, len(raw.Array()))

	raw.ForEach(func(_, item gjson.Result) bool {
		res := model.ScoreResult{
			ID:    int(item.Get("id").Int()),
			Score: model.NormalizeScore(item.Get("score").Float()),
			Label: strings.ToUpper(item.Get("risk").String()),
		}
		if res.Label == "" {
			res.Label = model.BucketScore(res.Score)
		}
		for _, h := range item.Get("highlights").Array() {
			if s := h.String(); s != "" {
				res.Highlights = append(res.Highlights, s)
			}
		}
		results = append(results, res)
		return true
	})

	return results
}
