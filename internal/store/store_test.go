package store

import (
	"context"
	"math"
	"testing"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func testAnchor(id, path string, score float64) model.RiskAnchor {
	return model.RiskAnchor{
		AnchorID: id,
		Score:    score,
		Label:    model.BucketScore(score),
		Locator:  model.Locator{Path: path},
		Text:     "send money to this UPI handle now",
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()

		openTestStore(t)
	})

	t.Run("missing database without create option fails", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false, EnableWAL: true}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Fatal("Open() error = nil, want error for missing database")
		}
	})
}

func TestAnchorLog(t *testing.T) {
	t.Parallel()

	t.Run("logged anchors come back highest score first", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()
		pageURL := "https://shop.example/offers"

		anchors := []model.RiskAnchor{
			testAnchor("mg-anchor-aaa", "body > p:nth-of-type(1)", 0.4),
			testAnchor("mg-anchor-bbb", "body > p:nth-of-type(2)", 0.9),
		}
		if err := s.LogAnchors(ctx, pageURL, anchors); err != nil {
			t.Fatalf("LogAnchors() error = %v", err)
		}

		records, err := s.AnchorLog(ctx, pageURL)
		if err != nil {
			t.Fatalf("AnchorLog() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("AnchorLog() returned %d records, want 2", len(records))
		}
		if records[0].AnchorID != "mg-anchor-bbb" {
			t.Errorf("first record = %s, want mg-anchor-bbb", records[0].AnchorID)
		}
		if records[0].Score != 0.9 {
			t.Errorf("first record score = %f, want 0.9", records[0].Score)
		}
	})

	t.Run("re-logging an anchor updates in place", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()
		pageURL := "https://shop.example/"

		if err := s.LogAnchors(ctx, pageURL, []model.RiskAnchor{
			testAnchor("mg-anchor-aaa", "body > p", 0.5),
		}); err != nil {
			t.Fatalf("LogAnchors() error = %v", err)
		}
		if err := s.LogAnchors(ctx, pageURL, []model.RiskAnchor{
			testAnchor("mg-anchor-aaa", "body > p", 0.8),
		}); err != nil {
			t.Fatalf("LogAnchors() second call error = %v", err)
		}

		records, err := s.AnchorLog(ctx, pageURL)
		if err != nil {
			t.Fatalf("AnchorLog() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("AnchorLog() returned %d records, want 1", len(records))
		}
		if records[0].Score != 0.8 {
			t.Errorf("score = %f, want 0.8 after update", records[0].Score)
		}
	})

	t.Run("clear removes only the given page", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		if err := s.LogAnchors(ctx, "https://a.example/", []model.RiskAnchor{
			testAnchor("mg-anchor-aaa", "body > p", 0.7),
		}); err != nil {
			t.Fatalf("LogAnchors() error = %v", err)
		}
		if err := s.LogAnchors(ctx, "https://b.example/", []model.RiskAnchor{
			testAnchor("mg-anchor-bbb", "body > p", 0.7),
		}); err != nil {
			t.Fatalf("LogAnchors() error = %v", err)
		}

		if err := s.ClearAnchorLog(ctx, "https://a.example/"); err != nil {
			t.Fatalf("ClearAnchorLog() error = %v", err)
		}

		records, err := s.AnchorLog(ctx, "")
		if err != nil {
			t.Fatalf("AnchorLog() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("AnchorLog() returned %d records, want 1", len(records))
		}
		if records[0].URL != "https://b.example/" {
			t.Errorf("surviving record URL = %s, want https://b.example/", records[0].URL)
		}
	})

	t.Run("clear with empty URL removes everything", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		if err := s.LogAnchors(ctx, "https://a.example/", []model.RiskAnchor{
			testAnchor("mg-anchor-aaa", "body > p", 0.7),
		}); err != nil {
			t.Fatalf("LogAnchors() error = %v", err)
		}

		if err := s.ClearAnchorLog(ctx, ""); err != nil {
			t.Fatalf("ClearAnchorLog() error = %v", err)
		}

		records, err := s.AnchorLog(ctx, "")
		if err != nil {
			t.Fatalf("AnchorLog() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("AnchorLog() returned %d records, want 0", len(records))
		}
	})
}

func TestSaveReport(t *testing.T) {
	t.Parallel()

	t.Run("saved report round-trips", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		report := model.NewScanReport("https://shop.example/offers")
		report.TopScore = 0.82
		report.TopLabel = "HIGH"
		report.CandidateCount = 14
		report.Show = true

		if err := s.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}

		got, err := s.LatestReport(ctx, "https://shop.example/offers")
		if err != nil {
			t.Fatalf("LatestReport() error = %v", err)
		}
		if got == nil {
			t.Fatal("LatestReport() = nil, want report")
		}
		if got.TopScore != 0.82 || got.TopLabel != "HIGH" || got.CandidateCount != 14 {
			t.Errorf("LatestReport() = %+v, want saved values", got)
		}
	})

	t.Run("missing report returns nil without error", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)

		got, err := s.LatestReport(context.Background(), "https://nowhere.example/")
		if err != nil {
			t.Fatalf("LatestReport() error = %v", err)
		}
		if got != nil {
			t.Errorf("LatestReport() = %+v, want nil", got)
		}
	})

	t.Run("latest wins when multiple reports exist", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		for _, score := range []float64{0.4, 0.9} {
			report := model.NewScanReport("https://shop.example/")
			report.TopScore = score
			if err := s.SaveReport(ctx, report); err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
		}

		got, err := s.LatestReport(ctx, "https://shop.example/")
		if err != nil {
			t.Fatalf("LatestReport() error = %v", err)
		}
		if got.TopScore != 0.9 {
			t.Errorf("LatestReport().TopScore = %f, want 0.9", got.TopScore)
		}
	})
}

func TestRiskHistory(t *testing.T) {
	t.Parallel()

	t.Run("history is chronological with stats", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		for _, score := range []float64{0.2, 0.8, 0.5} {
			report := model.NewScanReport("https://shop.example/page")
			report.TopScore = score
			report.TopLabel = model.BucketScore(score)
			if err := s.SaveReport(ctx, report); err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
		}

		points, stats, err := s.RiskHistory(ctx, "shop.example")
		if err != nil {
			t.Fatalf("RiskHistory() error = %v", err)
		}
		if len(points) != 3 {
			t.Fatalf("RiskHistory() returned %d points, want 3", len(points))
		}
		if points[0].Score != 0.2 || points[2].Score != 0.5 {
			t.Errorf("points not chronological: %+v", points)
		}
		if stats.Last != 0.5 {
			t.Errorf("stats.Last = %f, want 0.5", stats.Last)
		}
		if stats.Max != 0.8 {
			t.Errorf("stats.Max = %f, want 0.8", stats.Max)
		}
		if math.Abs(stats.Avg-0.5) > 1e-9 {
			t.Errorf("stats.Avg = %f, want 0.5", stats.Avg)
		}
		if stats.Count != 3 {
			t.Errorf("stats.Count = %d, want 3", stats.Count)
		}
	})

	t.Run("history is pruned to the retention depth", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()

		for i := range historyDepth + 5 {
			report := model.NewScanReport("https://busy.example/")
			report.TopScore = float64(i) / float64(historyDepth+5)
			if err := s.SaveReport(ctx, report); err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
		}

		points, stats, err := s.RiskHistory(ctx, "busy.example")
		if err != nil {
			t.Fatalf("RiskHistory() error = %v", err)
		}
		if len(points) != historyDepth {
			t.Errorf("RiskHistory() returned %d points, want %d", len(points), historyDepth)
		}
		if stats.Count != historyDepth {
			t.Errorf("stats.Count = %d, want %d", stats.Count, historyDepth)
		}
	})

	t.Run("unknown host has empty history", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)

		points, stats, err := s.RiskHistory(context.Background(), "nobody.example")
		if err != nil {
			t.Fatalf("RiskHistory() error = %v", err)
		}
		if len(points) != 0 {
			t.Errorf("RiskHistory() returned %d points, want 0", len(points))
		}
		if stats != (HistoryStats{}) {
			t.Errorf("stats = %+v, want zero", stats)
		}
	})
}

func TestListHosts(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://b.example/", "https://a.example/", "https://b.example/again"} {
		report := model.NewScanReport(u)
		report.TopScore = 0.3
		if err := s.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}

	hosts, err := s.ListHosts(ctx)
	if err != nil {
		t.Fatalf("ListHosts() error = %v", err)
	}
	want := []string{"a.example", "b.example"}
	if len(hosts) != len(want) {
		t.Fatalf("ListHosts() = %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("hosts[%d] = %s, want %s", i, hosts[i], want[i])
		}
	}
}
