// Package scheduler coordinates scan execution for one document context.
// It owns the scan lifecycle: heartbeat and mutation triggers funnel into a
// single run loop, a single-flight guard drops re-entrant triggers while a
// classifier call is in flight, selection locks defer scans while the user
// is selecting text, and every completed scan feeds the visibility state
// machine that decides whether results are surfaced.
package scheduler
