package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/anchor"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/prefs"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/sampler"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/service"
)

// Trigger identifies what asked for a scan.
type Trigger int

const (
	// TriggerHeartbeat is the periodic re-check in watch mode.
	TriggerHeartbeat Trigger = iota

	// TriggerMutation is a detected content change. Debounced with the
	// normal window.
	TriggerMutation

	// TriggerEditableMutation is a content change while editable content
	// has focus. Debounced with the longer editable window.
	TriggerEditableMutation

	// TriggerForceShow is an explicit user request to surface results.
	// Scans immediately and overrides a dismissed overlay.
	TriggerForceShow

	// TriggerVisibilityRegain fires when the page becomes visible again.
	TriggerVisibilityRegain

	// triggerDeferred re-fires a scan that was deferred by a selection
	// lock, once, after the lock window passes.
	triggerDeferred
)

// String returns the trigger name for logs.
func (t Trigger) String() string {
	switch t {
	case TriggerHeartbeat:
		return "heartbeat"
	case TriggerMutation:
		return "mutation"
	case TriggerEditableMutation:
		return "editable-mutation"
	case TriggerForceShow:
		return "force-show"
	case TriggerVisibilityRegain:
		return "visibility-regain"
	case triggerDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Snapshotter supplies the current document for sampling. In watch mode
// this re-fetches the page; tests supply a static document.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*goquery.Document, string, error)
}

// SnapshotFunc adapts a function to the Snapshotter interface.
type SnapshotFunc func(ctx context.Context) (*goquery.Document, string, error)

// Snapshot implements Snapshotter.
func (f SnapshotFunc) Snapshot(ctx context.Context) (*goquery.Document, string, error) {
	return f(ctx)
}

// UpdateFunc receives the report and visibility decision after each
// completed scan pass. changed is false when the decision is identical to
// the previous one, so consumers can skip presentation work.
type UpdateFunc func(report model.ScanReport, decision Decision, changed bool)

// Session coordinates scans for one document context.
//
// All session state mutates inside either the run loop goroutine or a
// caller holding mu; the single-flight guard is atomic because it is the
// one piece of state checked from arbitrary goroutines before any
// suspension point.
type Session struct {
	cfg      *config.Config
	logger   *slog.Logger
	scorer   service.Scorer
	source   Snapshotter
	registry *anchor.Registry
	budget   sampler.Budget
	prefsFn  func() prefs.State
	onUpdate UpdateFunc

	// isScanning is the single-flight guard. Set before the classifier
	// call, cleared via defer on every exit path.
	isScanning atomic.Bool

	// triggers carries trigger signals into the run loop. Unbuffered on
	// purpose: sends while the loop is busy scanning are dropped, which
	// is exactly the single-flight semantic for external triggers.
	triggers chan Trigger

	mu             sync.Mutex
	lastReport     *model.ScanReport
	lastScores     []model.ScoreResult
	lastDecision   Decision
	hasDecision    bool
	forceShow      bool
	overlayClosed  bool
	lockedUntil    time.Time
	deferredQueued bool
	lastErrMsg     string
	hasPrefs       bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPrefs sets the preference source consulted on every scan pass.
// When set, the preference threshold takes precedence over the configured
// default, including an explicit zero ("surface everything").
func WithPrefs(fn func() prefs.State) SessionOption {
	return func(s *Session) {
		s.prefsFn = fn
		s.hasPrefs = true
	}
}

// WithBudget overrides the sampling budget.
func WithBudget(b sampler.Budget) SessionOption {
	return func(s *Session) { s.budget = b }
}

// WithOnUpdate sets the callback invoked after each completed scan pass.
func WithOnUpdate(fn UpdateFunc) SessionOption {
	return func(s *Session) { s.onUpdate = fn }
}

// NewSession creates a scan session.
func NewSession(cfg *config.Config, logger *slog.Logger, scorer service.Scorer, source Snapshotter, opts ...SessionOption) *Session {
	s := &Session{
		cfg:      cfg,
		logger:   logger,
		scorer:   scorer,
		source:   source,
		registry: anchor.NewRegistry(),
		budget: sampler.Budget{
			PerItemCharLimit: cfg.PerItemCharLimit,
			TotalCharBudget:  cfg.TotalCharBudget,
			MaxItems:         cfg.MaxItems,
		},
		prefsFn:  prefs.DefaultState,
		onUpdate: func(model.ScanReport, Decision, bool) {},
		triggers: make(chan Trigger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the session's anchor registry for navigation.
func (s *Session) Registry() *anchor.Registry {
	return s.registry
}

// Trigger requests a scan. The send is non-blocking: triggers arriving
// while the run loop is scanning (or before Start) are dropped, not queued.
func (s *Session) Trigger(t Trigger) {
	if t == TriggerForceShow {
		s.mu.Lock()
		s.forceShow = true
		s.mu.Unlock()
	}
	select {
	case s.triggers <- t:
	default:
		s.logger.Debug("trigger dropped", "trigger", t.String())
	}
}

// SetOverlayClosed records the user dismissing or restoring the overlay.
// Dismissing also clears any earlier force-show.
func (s *Session) SetOverlayClosed(closed bool) {
	s.mu.Lock()
	s.overlayClosed = closed
	if closed {
		s.forceShow = false
	}
	s.mu.Unlock()
}

// LockSelection defers scans for the given duration, e.g. while the user
// is selecting text. Renewals simply extend the window; the lock heals
// itself by timestamp comparison, so a missed unlock cannot wedge scans.
func (s *Session) LockSelection(d time.Duration) {
	s.mu.Lock()
	s.lockedUntil = time.Now().Add(d)
	s.mu.Unlock()
}

// LastReport returns the most recent scan report, or nil before the first
// completed scan.
func (s *Session) LastReport() *model.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	cp := *s.lastReport
	return &cp
}

// Decision returns the current visibility decision.
func (s *Session) Decision() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDecision
}

// IsScanning reports whether a scan pass is in flight.
func (s *Session) IsScanning() bool {
	return s.isScanning.Load()
}

// Start launches the run loop. It returns immediately; the loop exits when
// ctx is canceled.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

// run serializes all scan execution through one goroutine. Mutation
// triggers are debounced; everything else scans immediately, subject to
// the selection lock and the single-flight guard.
func (s *Session) run(ctx context.Context) {
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	resetDebounce := func(d time.Duration) {
		if debounce == nil {
			debounce = time.NewTimer(d)
			debounceC = debounce.C
			return
		}
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-heartbeat.C:
			s.tryScan(ctx, TriggerHeartbeat)

		case trig := <-s.triggers:
			switch trig {
			case TriggerMutation:
				resetDebounce(s.cfg.MutationDebounce)
			case TriggerEditableMutation:
				resetDebounce(s.cfg.EditableDebounce)
			default:
				s.tryScan(ctx, trig)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			s.tryScan(ctx, TriggerMutation)
		}
	}
}

// tryScan runs one scan pass unless the selection lock or single-flight
// guard says otherwise.
//
// A scan arriving during a selection lock is remembered once: when the
// lock window passes, exactly one deferred scan fires. Further triggers
// during the lock are dropped, matching the drop-not-queue rule.
func (s *Session) tryScan(ctx context.Context, trig Trigger) {
	s.mu.Lock()
	remaining := time.Until(s.lockedUntil)
	if remaining > 0 {
		if !s.deferredQueued {
			s.deferredQueued = true
			time.AfterFunc(remaining, func() {
				s.mu.Lock()
				s.deferredQueued = false
				s.mu.Unlock()
				s.Trigger(triggerDeferred)
			})
		}
		s.mu.Unlock()
		s.logger.Debug("scan deferred by selection lock", "trigger", trig.String())
		return
	}
	s.mu.Unlock()

	if !s.isScanning.CompareAndSwap(false, true) {
		s.logger.Debug("scan already in flight", "trigger", trig.String())
		return
	}
	defer s.isScanning.Store(false)

	s.scanOnce(ctx, trig)
}

// ScanNow runs one synchronous scan pass, honoring the single-flight
// guard. It is the entry point for one-shot CLI scans.
func (s *Session) ScanNow(ctx context.Context) (*model.ScanReport, error) {
	if !s.isScanning.CompareAndSwap(false, true) {
		return s.LastReport(), nil
	}
	defer s.isScanning.Store(false)

	if err := s.scanOnce(ctx, TriggerHeartbeat); err != nil {
		return nil, err
	}
	return s.LastReport(), nil
}

// scanOnce performs a full scan pass: snapshot, sample, score, rebuild
// anchors, decide visibility. Service failures leave all prior state
// intact; the error is recorded and swallowed so the loop never dies.
func (s *Session) scanOnce(ctx context.Context, trig Trigger) error {
	st := s.prefsFn()

	if st.PauseScanning {
		s.finishPaused(trig)
		return nil
	}

	doc, pageURL, err := s.source.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("snapshot failed, keeping previous results",
			"trigger", trig.String(), "error", err)
		return err
	}

	candidates := sampler.Sample(doc, pageURL, s.budget)
	if len(candidates) == 0 {
		s.finishEmpty(pageURL, st)
		return nil
	}

	results, err := s.scorer.Score(ctx, s.cfg.Language, candidates)
	if err != nil {
		s.reportScoreError(err, trig)
		return err
	}

	threshold := s.effectiveThreshold(st)
	anchors := s.registry.Rebuild(doc, results, candidates, threshold)
	topScore, topLabel := topResult(results)

	report := model.NewScanReport(pageURL)
	report.TopScore = topScore
	report.TopLabel = topLabel
	report.CandidateCount = len(candidates)
	report.Anchors = anchors

	s.mu.Lock()
	s.lastReport = report
	s.lastScores = results
	decision := Decide(VisibilityInputs{
		HasResult:     true,
		TopScore:      topScore,
		Threshold:     threshold,
		ForceShow:     s.forceShow,
		OverlayClosed: s.overlayClosed,
		Expanded:      st.Expanded(),
		Paused:        false,
	})
	changed := s.commitDecisionLocked(decision)
	report.Show = decision.Show
	snapshot := *report
	s.mu.Unlock()

	s.logger.Debug("scan complete",
		"trigger", trig.String(),
		"candidates", len(candidates),
		"anchors", len(anchors),
		"top_score", topScore,
		"show", decision.Show)

	s.onUpdate(snapshot, decision, changed)
	return nil
}

// finishPaused records a placeholder pass without touching the classifier.
// Force-show still surfaces the last completed result.
func (s *Session) finishPaused(trig Trigger) {
	s.mu.Lock()
	decision := Decide(VisibilityInputs{
		HasResult:     s.lastReport != nil,
		ForceShow:     s.forceShow,
		OverlayClosed: s.overlayClosed,
		Paused:        true,
	})
	changed := s.commitDecisionLocked(decision)

	var snapshot model.ScanReport
	if s.lastReport != nil {
		snapshot = *s.lastReport
	}
	snapshot.Placeholder = true
	snapshot.Show = decision.Show
	s.mu.Unlock()

	s.logger.Debug("scan skipped: paused", "trigger", trig.String())
	s.onUpdate(snapshot, decision, changed)
}

// finishEmpty records a scan of a page with nothing to score.
func (s *Session) finishEmpty(pageURL string, st prefs.State) {
	s.registry.Rebuild(nil, nil, nil, s.effectiveThreshold(st))

	report := model.NewScanReport(pageURL)

	s.mu.Lock()
	s.lastReport = report
	s.lastScores = nil
	decision := Decide(VisibilityInputs{
		HasResult:     true,
		TopScore:      0,
		Threshold:     s.effectiveThreshold(st),
		ForceShow:     s.forceShow,
		OverlayClosed: s.overlayClosed,
		Expanded:      st.Expanded(),
	})
	changed := s.commitDecisionLocked(decision)
	report.Show = decision.Show
	snapshot := *report
	s.mu.Unlock()

	s.onUpdate(snapshot, decision, changed)
}

// reportScoreError logs a degraded pass. Prior report, scores, anchors,
// and decision all stay exactly as they were. A repeating failure (the
// typical case for a misconfigured endpoint hit on every heartbeat) is
// surfaced once at Warn and demoted to Debug afterwards.
func (s *Session) reportScoreError(err error, trig Trigger) {
	s.mu.Lock()
	repeat := s.lastErrMsg == err.Error()
	s.lastErrMsg = err.Error()
	s.mu.Unlock()

	if repeat {
		s.logger.Debug("scoring still failing", "trigger", trig.String(), "error", err)
		return
	}
	s.logger.Warn("scoring failed, keeping previous results",
		"trigger", trig.String(), "error", err)
}

// commitDecisionLocked stores the decision and reports whether it changed.
// Callers must hold mu.
func (s *Session) commitDecisionLocked(d Decision) bool {
	changed := !s.hasDecision || d != s.lastDecision
	s.lastDecision = d
	s.hasDecision = true
	return changed
}

// effectiveThreshold resolves the scan threshold: an injected preference
// source wins over the configured default, including an explicit zero.
func (s *Session) effectiveThreshold(st prefs.State) float64 {
	if s.hasPrefs {
		return st.NormalizedThreshold()
	}
	return model.NormalizeScore(s.cfg.Threshold)
}

// topResult returns the highest normalized score and its label.
func topResult(results []model.ScoreResult) (float64, string) {
	top := 0.0
	label := model.BucketScore(0)
	for _, r := range results {
		score := model.NormalizeScore(r.Score)
		if score > top {
			top = score
			label = r.Label
			if label == "" {
				label = model.BucketScore(score)
			}
		}
	}
	return top, label
}
