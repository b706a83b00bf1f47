package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// historyDepth is the number of scores retained per host. Older rows
// are pruned on each insert, keeping trend queries cheap.
const historyDepth = 20

// Store provides SQLite-based storage for scan results, the anchor
// log, and per-host risk history.
//
// Design decision: a single database file holds all hosts rather than
// one file per host. The anchor log and risk history are both queried
// across hosts, and one file simplifies backup.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "marketguard.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY on concurrent updates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Anchor log: every risky anchor flagged on a page. Rows are only
	-- removed by an explicit clear, never aged out.
	CREATE TABLE IF NOT EXISTS anchor_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		anchor_id TEXT NOT NULL,
		path TEXT NOT NULL,
		text TEXT NOT NULL,
		score REAL NOT NULL,
		label TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, anchor_id)
	);

	CREATE INDEX IF NOT EXISTS idx_anchor_log_url ON anchor_log(url);

	-- Risk history: one row per completed scan, keyed by host.
	CREATE TABLE IF NOT EXISTS risk_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		score REAL NOT NULL,
		label TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_host ON risk_history(host);

	-- Scan reports store complete scan results as JSON.
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		top_score REAL NOT NULL,
		top_label TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_url ON scan_reports(url);
	CREATE INDEX IF NOT EXISTS idx_reports_host ON scan_reports(host);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// AnchorRecord is a stored anchor log entry.
type AnchorRecord struct {
	ID        int64
	URL       string
	AnchorID  string
	Path      string
	Text      string
	Score     float64
	Label     string
	Timestamp time.Time
}

// LogAnchors upserts the given anchors into the anchor log. An anchor
// re-flagged on a later scan updates its score, label, and timestamp
// in place; the log grows only when new regions are flagged.
func (s *Store) LogAnchors(ctx context.Context, pageURL string, anchors []model.RiskAnchor) error {
	if len(anchors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO anchor_log (url, anchor_id, path, text, score, label)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, anchor_id) DO UPDATE SET
		path = excluded.path,
		text = excluded.text,
		score = excluded.score,
		label = excluded.label,
		timestamp = CURRENT_TIMESTAMP
	`

	for _, a := range anchors {
		if _, err := tx.ExecContext(ctx, query,
			pageURL,
			a.AnchorID,
			a.Locator.Path,
			a.Text,
			a.Score,
			a.Label,
		); err != nil {
			return fmt.Errorf("failed to log anchor %s: %w", a.AnchorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit anchor log: %w", err)
	}
	return nil
}

// AnchorLog returns the logged anchors for a page URL, highest score
// first. An empty URL returns the log across all pages.
func (s *Store) AnchorLog(ctx context.Context, pageURL string) ([]AnchorRecord, error) {
	query := `
	SELECT id, url, anchor_id, path, text, score, label, timestamp
	FROM anchor_log
	`
	args := make([]any, 0, 1)
	if pageURL != "" {
		query += " WHERE url = ?"
		args = append(args, pageURL)
	}
	query += " ORDER BY score DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anchor log: %w", err)
	}
	defer rows.Close()

	var records []AnchorRecord
	for rows.Next() {
		var rec AnchorRecord
		var timestamp string

		if err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.AnchorID,
			&rec.Path,
			&rec.Text,
			&rec.Score,
			&rec.Label,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anchor record: %w", err)
		}
		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ClearAnchorLog removes logged anchors for a page URL. An empty URL
// clears the whole log. This is the only way anchor log rows are
// removed.
func (s *Store) ClearAnchorLog(ctx context.Context, pageURL string) error {
	query := "DELETE FROM anchor_log"
	args := make([]any, 0, 1)
	if pageURL != "" {
		query += " WHERE url = ?"
		args = append(args, pageURL)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear anchor log: %w", err)
	}
	return nil
}

// SaveReport persists a scan report and appends its top score to the
// host's risk history, pruning history beyond the retention depth.
func (s *Store) SaveReport(ctx context.Context, report *model.ScanReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	host := hostOf(report.URL)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO scan_reports (url, host, top_score, top_label, report_json)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.URL,
		host,
		report.TopScore,
		report.TopLabel,
		string(reportJSON),
	); err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO risk_history (host, score, label)
	VALUES (?, ?, ?)
	`,
		host,
		report.TopScore,
		report.TopLabel,
	); err != nil {
		return fmt.Errorf("failed to append risk history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	DELETE FROM risk_history
	WHERE host = ? AND id NOT IN (
		SELECT id FROM risk_history WHERE host = ? ORDER BY id DESC LIMIT ?
	)
	`, host, host, historyDepth); err != nil {
		return fmt.Errorf("failed to prune risk history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// LatestReport retrieves the most recent scan report for a URL.
// Returns nil without error when no report exists.
func (s *Store) LatestReport(ctx context.Context, pageURL string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE url = ?
	ORDER BY id DESC
	LIMIT 1
	`

	var reportJSON string
	err := s.db.QueryRowContext(ctx, query, pageURL).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListHosts returns all hosts with recorded risk history, sorted.
func (s *Store) ListHosts(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT host FROM risk_history
	ORDER BY host
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

// HistoryPoint is one entry of a host's risk history.
type HistoryPoint struct {
	Score     float64
	Label     string
	Timestamp time.Time
}

// HistoryStats summarizes a host's risk history.
type HistoryStats struct {
	// Last is the most recent score.
	Last float64

	// Avg is the mean score over the retained history.
	Avg float64

	// Max is the highest score over the retained history.
	Max float64

	// Count is the number of retained history points.
	Count int
}

// RiskHistory returns a host's retained risk history in chronological
// order, plus the last/avg/max summary. A host with no history returns
// an empty slice and zero stats.
func (s *Store) RiskHistory(ctx context.Context, host string) ([]HistoryPoint, HistoryStats, error) {
	query := `
	SELECT score, label, timestamp FROM risk_history
	WHERE host = ?
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, host, historyDepth)
	if err != nil {
		return nil, HistoryStats{}, fmt.Errorf("failed to query risk history: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		var timestamp string
		if err := rows.Scan(&p.Score, &p.Label, &timestamp); err != nil {
			return nil, HistoryStats{}, fmt.Errorf("failed to scan history point: %w", err)
		}
		p.Timestamp = parseTimestamp(timestamp)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, HistoryStats{}, err
	}

	// Query returned newest first; flip to chronological order.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, summarize(points), nil
}

// summarize computes the last/avg/max stats over history points.
func summarize(points []HistoryPoint) HistoryStats {
	if len(points) == 0 {
		return HistoryStats{}
	}

	stats := HistoryStats{
		Last:  points[len(points)-1].Score,
		Count: len(points),
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Score
		if p.Score > stats.Max {
			stats.Max = p.Score
		}
	}
	stats.Avg = sum / float64(len(points))
	return stats
}

// hostOf extracts the host part of a URL for history keying. A URL
// that does not parse keys under its raw string so its history is
// still recorded somewhere findable.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite returns timestamps in different formats depending on
// configuration; anything unparseable becomes the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
