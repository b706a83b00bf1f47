package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	mglog "github.com/BlueWaves-afk/marketguard.ai-sub000/internal/log"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

func TestBuildConfig(t *testing.T) {
	t.Run("applies flag values", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cmd := NewScanCmd()
		for flag, value := range map[string]string{
			"score-url":     "https://score.example/v1",
			"detection-url": "https://detect.example/v1",
			"threshold":     "0.75",
			"timeout":       "10s",
			"max-items":     "100",
			"lang":          "hi",
			"media":         "true",
			"json":          "true",
		} {
			if err := cmd.Flags().Set(flag, value); err != nil {
				t.Fatalf("failed to set flag %s: %v", flag, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"https://shop.example/"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.ScoreURL != "https://score.example/v1" {
			t.Errorf("ScoreURL = %s", cfg.ScoreURL)
		}
		if cfg.Threshold != 0.75 {
			t.Errorf("Threshold = %f, want 0.75", cfg.Threshold)
		}
		if cfg.Timeout != 10*time.Second {
			t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
		}
		if cfg.MaxItems != 100 {
			t.Errorf("MaxItems = %d, want 100", cfg.MaxItems)
		}
		if cfg.Language != "hi" {
			t.Errorf("Language = %s, want hi", cfg.Language)
		}
		if !cfg.ScanMedia {
			t.Error("ScanMedia = false, want true")
		}
		if !cfg.JSONReport {
			t.Error("JSONReport = false, want true")
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://shop.example/" {
			t.Errorf("Targets = %v", cfg.Targets)
		}
		if !cfg.SaveToDB {
			t.Error("SaveToDB = false, want true")
		}
	})

	t.Run("explicit missing config file errors", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cmd := NewScanCmd()
		if err := cmd.Flags().Set("config", "does-not-exist.yaml"); err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, []string{"https://shop.example/"}); err == nil {
			t.Fatal("buildConfig() error = nil, want error")
		}
	})

	t.Run("loads explicit config file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		configPath := filepath.Join(dir, "sites.yaml")
		content := "sites:\n  shop.example:\n    cookie: \"session=abc\"\n    threshold: 0.8\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewScanCmd()
		if err := cmd.Flags().Set("config", configPath); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://shop.example/"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		site := siteConfigFor(cfg, "https://shop.example/offers")
		if site.Cookie != "session=abc" {
			t.Errorf("site cookie = %q, want session=abc", site.Cookie)
		}
		if site.Threshold != 0.8 {
			t.Errorf("site threshold = %f, want 0.8", site.Threshold)
		}
	})
}

func TestMediaEnabled(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name   string
		global bool
		site   *bool
		want   bool
	}{
		{name: "global off no override", global: false, site: nil, want: false},
		{name: "global on no override", global: true, site: nil, want: true},
		{name: "site enables", global: false, site: boolPtr(true), want: true},
		{name: "site disables", global: true, site: boolPtr(false), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{ScanMedia: tt.global}
			site := config.SiteConfig{ScanMedia: tt.site}
			if got := mediaEnabled(cfg, site); got != tt.want {
				t.Errorf("mediaEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputReport(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON report to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "scan.json")

		scanReport := model.NewScanReport("https://shop.example/")
		scanReport.TopScore = 0.82
		scanReport.TopLabel = "HIGH"

		if err := outputReport(cfg, scanReport); err != nil {
			t.Fatalf("outputReport() error = %v", err)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("report file not created: %v", err)
		}
		if !strings.Contains(string(content), `"top_score": 0.82`) {
			t.Errorf("report missing top score: %s", content)
		}
		if !strings.Contains(string(content), `"version"`) {
			t.Errorf("report missing version wrapper: %s", content)
		}
	})
}

func TestScanTarget(t *testing.T) {
	t.Parallel()

	const pageHTML = `<html><head><title>Deals</title></head><body>
		<div id="offers">
			<p>Send advance payment to UPI handle seller@okbank to reserve your slot.</p>
			<p>Free shipping on all orders.</p>
		</div>
	</body></html>`

	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, pageHTML)
	}))
	defer pageSrv.Close()

	scoreSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []struct {
				ID   int    `json:"id"`
				Text string `json:"text"`
			} `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		results := make([]map[string]any, 0, len(req.Items))
		for _, item := range req.Items {
			score := 0.1
			risk := "SAFE"
			if strings.Contains(item.Text, "advance payment") {
				score = 0.9
				risk = "HIGH"
			}
			results = append(results, map[string]any{
				"id": item.ID, "score": score, "risk": risk,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer scoreSrv.Close()

	cfg := config.NewConfig()
	cfg.ScoreURL = scoreSrv.URL
	cfg.Threshold = 0.5
	cfg.Targets = []string{pageSrv.URL}
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}

	logger := mglog.NewSecureLogger(io.Discard, false)

	scanReport, err := scanTarget(context.Background(), cfg, logger, pageSrv.URL)
	if err != nil {
		t.Fatalf("scanTarget() error = %v", err)
	}

	if scanReport.TopScore != 0.9 {
		t.Errorf("TopScore = %f, want 0.9", scanReport.TopScore)
	}
	if scanReport.TopLabel != "HIGH" {
		t.Errorf("TopLabel = %s, want HIGH", scanReport.TopLabel)
	}
	if !scanReport.Show {
		t.Error("Show = false, want true for a score above threshold")
	}
	if len(scanReport.Anchors) != 1 {
		t.Fatalf("Anchors = %d, want 1", len(scanReport.Anchors))
	}
	if !strings.HasPrefix(scanReport.Anchors[0].AnchorID, model.AnchorIDPrefix) {
		t.Errorf("anchor ID %q missing prefix", scanReport.Anchors[0].AnchorID)
	}
}
