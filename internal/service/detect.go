package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Detection severity levels. The detection service's vocabulary is
// normalized to these; anything unrecognized maps to LevelUnknown.
const (
	LevelHigh    = "HIGH"
	LevelMedium  = "MEDIUM"
	LevelLow     = "LOW"
	LevelSafe    = "SAFE"
	LevelUnknown = "UNKNOWN"
)

// Detection is the normalized verdict for one media item.
type Detection struct {
	// Level is the severity bucket: HIGH, MEDIUM, LOW, SAFE, or UNKNOWN.
	Level string `json:"level"`

	// Score is the detection confidence in [0,1], when the service
	// provides one.
	Score float64 `json:"score"`
}

// Detector analyzes media for synthetic-content manipulation.
type Detector interface {
	Detect(ctx context.Context, dataURL string) (*Detection, error)
	DetectBatch(ctx context.Context, media []MediaPayload) ([]Detection, error)
}

// MediaPayload is one item of a batch detection request.
type MediaPayload struct {
	// Kind is "image" or "video".
	Kind string `json:"kind"`

	// DataURL is the media content encoded as a data URL.
	DataURL string `json:"data_url"`
}

// DetectionClient talks to the media deepfake detection service.
type DetectionClient struct {
	endpoint string
	cfg      *clientConfig
}

// NewDetectionClient creates a detection client for the given endpoint URL.
func NewDetectionClient(endpoint string, opts ...Option) *DetectionClient {
	return &DetectionClient{
		endpoint: endpoint,
		cfg:      newClientConfig(opts...),
	}
}

// Detect analyzes a single media item.
func (c *DetectionClient) Detect(ctx context.Context, dataURL string) (*Detection, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	payload, err := json.Marshal(map[string]string{"data_url": dataURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode detection request: %w", err)
	}

	body, err := c.cfg.postJSON(ctx, c.endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("detection service: %w", err)
	}

	d := parseDetection(gjson.ParseBytes(body))
	return &d, nil
}

// DetectBatch analyzes several media items in one request. The response is
// expected as {"results":[...]} aligned with the request order; a short
// response leaves trailing items UNKNOWN.
func (c *DetectionClient) DetectBatch(ctx context.Context, media []MediaPayload) ([]Detection, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if len(media) == 0 {
		return nil, ErrEmptyBatch
	}

	payload, err := json.Marshal(map[string][]MediaPayload{"media": media})
	if err != nil {
		return nil, fmt.Errorf("failed to encode detection batch: %w", err)
	}

	body, err := c.cfg.postJSON(ctx, c.endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("detection service: %w", err)
	}

	detections := make([]Detection, len(media))
	for i := range detections {
		detections[i] = Detection{Level: LevelUnknown}
	}

	i := 0
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		if i >= len(detections) {
			return false
		}
		detections[i] = parseDetection(item)
		i++
		return true
	})

	return detections, nil
}

// parseDetection normalizes one verdict from the service's loose shapes.
// Both {"risk":{"level":..,"score":..}} and flat {"level":..,"score":..}
// deployments exist; a bare {"risk":"high"} string is also accepted.
func parseDetection(item gjson.Result) Detection {
	risk := item.Get("risk")

	var level string
	var score float64
	switch {
	case risk.IsObject():
		level = risk.Get("level").String()
		score = risk.Get("score").Float()
	case risk.Type == gjson.String:
		level = risk.String()
		score = item.Get("score").Float()
	default:
		level = item.Get("level").String()
		score = item.Get("score").Float()
	}

	return Detection{
		Level: normalizeLevel(level),
		Score: score,
	}
}

// normalizeLevel maps a service level string onto the fixed vocabulary.
func normalizeLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelHigh:
		return LevelHigh
	case LevelMedium:
		return LevelMedium
	case LevelLow:
		return LevelLow
	case LevelSafe, "NONE", "CLEAN":
		return LevelSafe
	default:
		return LevelUnknown
	}
}
