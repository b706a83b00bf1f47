package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/sampler"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/service"
)

// Pipeline fetches page media and runs it through the detection
// service. Failures on individual items degrade to an UNKNOWN verdict
// instead of failing the batch; a page with one broken image still gets
// verdicts for the rest.
type Pipeline struct {
	detector    service.Detector
	client      *http.Client
	logger      *slog.Logger
	userAgent   string
	concurrency int
	minSize     int
	maxBytes    int64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithHTTPClient sets the client used to fetch media bytes.
func WithHTTPClient(client *http.Client) PipelineOption {
	return func(p *Pipeline) {
		p.client = client
	}
}

// WithLogger sets the logger for per-item capture diagnostics.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithUserAgent sets the User-Agent header on media fetches.
func WithUserAgent(ua string) PipelineOption {
	return func(p *Pipeline) {
		p.userAgent = ua
	}
}

// WithConcurrency bounds the number of in-flight capture+detect tasks.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMinSize sets the minimum declared element dimension in pixels.
// Smaller elements are icons and tracking pixels, not detection targets.
func WithMinSize(px int) PipelineOption {
	return func(p *Pipeline) {
		if px > 0 {
			p.minSize = px
		}
	}
}

// WithMaxBytes caps how many bytes of a media resource are fetched.
// A resource larger than the cap is skipped, since truncated media
// bytes cannot be decoded by the detection service.
func WithMaxBytes(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewPipeline creates a media detection pipeline using the given
// detection client.
func NewPipeline(detector service.Detector, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		detector:    detector,
		client:      &http.Client{Timeout: config.DefaultTimeout},
		logger:      slog.Default(),
		userAgent:   config.DefaultUserAgent,
		concurrency: config.DefaultMediaConcurrency,
		minSize:     config.DefaultMinMediaSize,
		maxBytes:    config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan enumerates visible media in doc, captures each item, and returns
// per-severity verdict counts. Relative sources resolve against base.
// Individual capture or detection failures count as UNKNOWN; Scan only
// returns an error when the context is canceled.
func (p *Pipeline) Scan(ctx context.Context, doc *goquery.Document, base *url.URL) (model.MediaSummary, error) {
	candidates := sampler.MediaCandidates(doc, base, p.minSize)
	if len(candidates) == 0 {
		return model.MediaSummary{}, nil
	}

	// Pre-allocated so each goroutine writes its own slot; order is
	// irrelevant to the counts but keeps indexing race-free.
	levels := make([]string, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, cand := range candidates {
		g.Go(func() error {
			levels[i] = p.detectOne(ctx, cand)
			// Per-item failures are already recorded as UNKNOWN; only
			// context cancellation should stop the remaining items.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("media scan canceled: %w", err)
	}

	summary := model.MediaSummary{}
	for _, level := range levels {
		summary[level]++
	}
	return summary, nil
}

// detectOne captures a single media item and returns its severity
// level. Any failure along the way degrades to LevelUnknown.
func (p *Pipeline) detectOne(ctx context.Context, cand model.MediaCandidate) string {
	dataURL, raw, err := p.capture(ctx, cand)
	if err != nil {
		p.logger.Debug("media capture failed",
			"url", cand.SourceURL, "error", err)
		return service.LevelUnknown
	}

	var hints ExifHints
	if cand.Kind == "image" {
		hints = ExtractHints(raw)
		if !hints.Empty() {
			p.logger.Debug("media exif hints",
				"url", cand.SourceURL,
				"software", hints.Software,
				"created_at", hints.CreatedAt,
				"gps", hints.HasGPS)
		}
	}

	det, err := p.detector.Detect(ctx, dataURL)
	if err != nil {
		p.logger.Debug("media detection failed",
			"url", cand.SourceURL, "error", err)
		return service.LevelUnknown
	}

	level := det.Level
	// A file rewritten by an editing tool is not proof of manipulation,
	// but it disqualifies a clean verdict.
	if level == service.LevelSafe && hints.Edited() {
		p.logger.Debug("media verdict raised for editor software",
			"url", cand.SourceURL, "software", hints.Software)
		level = service.LevelLow
	}
	return level
}

// capture returns the media item as a data URL plus its raw bytes.
// Data URL sources pass through without a network fetch.
func (p *Pipeline) capture(ctx context.Context, cand model.MediaCandidate) (string, []byte, error) {
	if strings.HasPrefix(cand.SourceURL, "data:") {
		raw, err := decodeDataURL(cand.SourceURL)
		if err != nil {
			return "", nil, err
		}
		return cand.SourceURL, raw, nil
	}

	raw, contentType, err := p.fetch(ctx, cand.SourceURL)
	if err != nil {
		return "", nil, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}
	dataURL := "data:" + contentType + ";base64," +
		base64.StdEncoding.EncodeToString(raw)
	return dataURL, raw, nil
}

// fetch downloads the media resource up to the byte cap.
func (p *Pipeline) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create media request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media fetch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}
	if int64(len(raw)) > p.maxBytes {
		return nil, "", fmt.Errorf("media exceeds %d byte cap", p.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = mediaType
		}
	}
	return raw, contentType, nil
}

// decodeDataURL extracts the payload bytes from a data URL.
func decodeDataURL(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := src[:comma], src[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URL payload: %w", err)
		}
		return raw, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape data URL payload: %w", err)
	}
	return []byte(decoded), nil
}
