// Package model defines the core data structures used throughout MarketGuard.
//
// This package contains the following main types:
//   - Candidate: A sampled unit of page content eligible for scoring in one scan batch
//   - ScoreResult: A per-candidate score returned by the risk classifier
//   - RiskAnchor: A persisted, identity-stable record of a region judged risky
//   - Page: A fetched snapshot of the target document
//   - ScanReport: The aggregate result of one scan pass
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (sampler, anchor, scheduler, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
