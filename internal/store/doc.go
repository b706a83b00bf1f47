// Package store provides SQLite-backed persistence for scan results.
// It keeps three datasets: the anchor log (every risky anchor ever
// flagged, kept until explicitly cleared), per-host risk history (the
// last 20 scan scores per host, for trend summaries), and full scan
// reports stored as JSON.
package store
