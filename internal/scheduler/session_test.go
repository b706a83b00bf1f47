package scheduler

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	mglog "github.com/BlueWaves-afk/marketguard.ai-sub000/internal/log"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/prefs"
)

// fakeScorer is a controllable Scorer for session tests.
type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	err    error
	scores map[string]float64 // substring -> score
	block  chan struct{}      // when non-nil, Score waits until closed
}

func (f *fakeScorer) Score(_ context.Context, _ string, candidates []model.Candidate) ([]model.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}

	results := make([]model.ScoreResult, 0, len(candidates))
	for _, c := range candidates {
		score := 0.05
		for sub, s := range f.scores {
			if strings.Contains(c.Text, sub) {
				score = s
				break
			}
		}
		results = append(results, model.ScoreResult{ID: c.ID, Score: score})
	}
	return results, nil
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// staticSource returns the same parsed document on every snapshot.
func staticSource(t *testing.T, html, url string) SnapshotFunc {
	t.Helper()
	return func(context.Context) (*goquery.Document, string, error) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, "", err
		}
		return doc, url, nil
	}
}

// testConfig returns a config tuned for fast tests: the heartbeat is far
// away so only explicit triggers drive scans.
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.HeartbeatInterval = time.Hour
	cfg.MutationDebounce = 10 * time.Millisecond
	cfg.EditableDebounce = 30 * time.Millisecond
	cfg.Threshold = 0.5
	return cfg
}

const scamPage = `<html><body><div id="main">
	<p>guaranteed returns, DM me</p>
	<p>our office hours are 9 to 5</p>
</div></body></html>`

func newTestSession(t *testing.T, scorer *fakeScorer, opts ...SessionOption) *Session {
	t.Helper()
	logger := mglog.NewSecureLogger(io.Discard, false)
	return NewSession(testConfig(), logger, scorer, staticSource(t, scamPage, "https://scam.example"), opts...)
}

// TestScanNowEndToEnd covers the primary flow: a risky page scores above
// threshold, produces one anchor, and the decision is to show.
func TestScanNowEndToEnd(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{scores: map[string]float64{"guaranteed returns": 0.82}}
	s := newTestSession(t, scorer)

	report, err := s.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("expected scan to succeed, got error: %v", err)
	}

	if report.TopScore != 0.82 {
		t.Errorf("expected top score 0.82, got %v", report.TopScore)
	}
	if !report.Show {
		t.Error("expected results to be shown")
	}
	if len(report.Anchors) != 1 {
		t.Fatalf("expected exactly one anchor, got %d", len(report.Anchors))
	}
	if !strings.Contains(report.Anchors[0].Text, "guaranteed returns") {
		t.Errorf("anchor text %q does not cover the risky region", report.Anchors[0].Text)
	}
	if s.IsScanning() {
		t.Error("expected scanning flag cleared after scan")
	}
}

// TestSingleFlight verifies that triggers arriving during an in-flight
// classifier call are dropped, not queued.
func TestSingleFlight(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	scorer := &fakeScorer{block: block}
	s := newTestSession(t, scorer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.ScanNow(context.Background()); err != nil {
			t.Errorf("unexpected scan error: %v", err)
		}
	}()

	// Wait for the scan to reach the classifier.
	deadline := time.After(2 * time.Second)
	for scorer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("scan never reached the classifier")
		case <-time.After(time.Millisecond):
		}
	}
	if !s.IsScanning() {
		t.Error("expected scanning flag set during flight")
	}

	// Re-entrant attempts while in flight are no-ops.
	for range 5 {
		if _, err := s.ScanNow(context.Background()); err != nil {
			t.Errorf("re-entrant scan returned error: %v", err)
		}
		s.Trigger(TriggerHeartbeat)
	}

	close(block)
	<-done

	if got := scorer.callCount(); got != 1 {
		t.Errorf("expected exactly 1 classifier call, got %d", got)
	}
}

// TestPausedScan verifies that a paused session never calls the classifier
// and that force-show still renders the last completed result.
func TestPausedScan(t *testing.T) {
	t.Parallel()

	paused := false
	scorer := &fakeScorer{scores: map[string]float64{"guaranteed returns": 0.82}}

	var mu sync.Mutex
	var lastReport model.ScanReport
	var lastDecision Decision
	s := newTestSession(t, scorer,
		WithPrefs(func() prefs.State {
			st := prefs.DefaultState()
			st.Threshold = 0.5
			st.PauseScanning = paused
			return st
		}),
		WithOnUpdate(func(r model.ScanReport, d Decision, _ bool) {
			mu.Lock()
			lastReport = r
			lastDecision = d
			mu.Unlock()
		}))

	// One successful scan before pausing.
	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("initial scan failed: %v", err)
	}
	callsBefore := scorer.callCount()

	paused = true

	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("paused scan returned error: %v", err)
	}
	if got := scorer.callCount(); got != callsBefore {
		t.Errorf("paused scan called the classifier: %d -> %d calls", callsBefore, got)
	}

	mu.Lock()
	if !lastReport.Placeholder {
		t.Error("expected placeholder report while paused")
	}
	if lastDecision.Show {
		t.Error("expected results hidden while paused without force-show")
	}
	mu.Unlock()

	// Force-show while paused renders the last completed result.
	s.Trigger(TriggerForceShow) // records the force-show intent
	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("paused force-show scan returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !lastDecision.Show || !lastDecision.Placeholder {
		t.Errorf("expected force-show to render last result under placeholder, got %+v", lastDecision)
	}
	if lastReport.TopScore != 0.82 {
		t.Errorf("expected last result preserved, got top score %v", lastReport.TopScore)
	}
}

// TestScoreFailurePreservesState verifies a classifier failure leaves the
// previous results intact and clears the in-flight flag.
func TestScoreFailurePreservesState(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{scores: map[string]float64{"guaranteed returns": 0.82}}
	s := newTestSession(t, scorer)

	first, err := s.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("initial scan failed: %v", err)
	}

	scorer.mu.Lock()
	scorer.err = errors.New("connection refused")
	scorer.mu.Unlock()

	if _, err := s.ScanNow(context.Background()); err == nil {
		t.Fatal("expected failing scan to return an error")
	}

	if s.IsScanning() {
		t.Error("expected scanning flag cleared after failure")
	}

	after := s.LastReport()
	if after == nil {
		t.Fatal("expected previous report preserved")
	}
	if after.TopScore != first.TopScore || len(after.Anchors) != len(first.Anchors) {
		t.Errorf("previous results were disturbed: %+v vs %+v", after, first)
	}
	if got := s.Registry().Len(); got != 1 {
		t.Errorf("expected anchor registry untouched, got %d anchors", got)
	}
	if d := s.Decision(); !d.Show {
		t.Errorf("expected previous decision preserved, got %+v", d)
	}
}

// TestMutationDebounce verifies a burst of mutation triggers collapses
// into a single scan.
func TestMutationDebounce(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{}
	updates := make(chan struct{}, 16)
	s := newTestSession(t, scorer,
		WithOnUpdate(func(model.ScanReport, Decision, bool) {
			updates <- struct{}{}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// Give the run loop a moment to start receiving.
	time.Sleep(20 * time.Millisecond)

	for range 5 {
		s.Trigger(TriggerMutation)
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced scan never ran")
	}

	// Allow any (incorrect) extra scans to surface before counting.
	time.Sleep(50 * time.Millisecond)
	if got := scorer.callCount(); got != 1 {
		t.Errorf("expected 1 classifier call for the burst, got %d", got)
	}
}

// TestSelectionLockDefersScan verifies scans during a selection lock are
// deferred and re-fired exactly once after the lock expires.
func TestSelectionLockDefersScan(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{}
	updates := make(chan struct{}, 16)
	s := newTestSession(t, scorer,
		WithOnUpdate(func(model.ScanReport, Decision, bool) {
			updates <- struct{}{}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(20 * time.Millisecond)

	s.LockSelection(80 * time.Millisecond)
	s.Trigger(TriggerVisibilityRegain)
	s.Trigger(TriggerVisibilityRegain)

	// Nothing runs while the lock holds.
	time.Sleep(30 * time.Millisecond)
	if got := scorer.callCount(); got != 0 {
		t.Fatalf("expected no scans during selection lock, got %d", got)
	}

	// The one deferred scan fires after expiry.
	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred scan never ran")
	}
	time.Sleep(50 * time.Millisecond)
	if got := scorer.callCount(); got != 1 {
		t.Errorf("expected exactly one deferred scan, got %d", got)
	}
}

// TestDecisionChangeFlag verifies unchanged decisions are flagged so
// consumers can skip presentation work.
func TestDecisionChangeFlag(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{scores: map[string]float64{"guaranteed returns": 0.82}}

	var mu sync.Mutex
	var changes []bool
	s := newTestSession(t, scorer,
		WithOnUpdate(func(_ model.ScanReport, _ Decision, changed bool) {
			mu.Lock()
			changes = append(changes, changed)
			mu.Unlock()
		}))

	for range 3 {
		if _, err := s.ScanNow(context.Background()); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(changes))
	}
	if !changes[0] {
		t.Error("expected first decision to be a change")
	}
	if changes[1] || changes[2] {
		t.Errorf("expected identical follow-up decisions to be flagged unchanged, got %v", changes)
	}
}
