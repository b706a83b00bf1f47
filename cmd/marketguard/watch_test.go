package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	mglog "github.com/BlueWaves-afk/marketguard.ai-sub000/internal/log"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/prefs"
)

func TestRunWatch(t *testing.T) {
	t.Parallel()

	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body><p>Flat offer, nothing suspicious.</p></body></html>`)
	}))
	defer pageSrv.Close()

	scoreSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer scoreSrv.Close()

	prefsPath := filepath.Join(t.TempDir(), prefs.PrefsFileName)

	cfg := config.NewConfig()
	cfg.ScoreURL = scoreSrv.URL
	cfg.Threshold = 0.5
	cfg.Targets = []string{pageSrv.URL}
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.SaveToDB = false

	logger := mglog.NewSecureLogger(io.Discard, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, cfg, logger, prefsPath)
	}()

	// Let a few heartbeats pass, then flip the preferences file so the
	// live-reload branch runs before shutdown.
	time.Sleep(300 * time.Millisecond)
	content := []byte("threshold: 0.9\npauseScanning: true\n")
	if err := os.WriteFile(prefsPath, content, 0o600); err != nil {
		t.Fatalf("failed to write preference file: %v", err)
	}
	time.Sleep(700 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch() error = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not stop after cancel")
	}
}
