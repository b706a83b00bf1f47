// Package anchor maintains the registry of risk anchors: identity-stable
// records of page regions the classifier judged risky. Anchors survive
// rescans and DOM rebuilds because their identity derives from structural
// locators and text prefixes, not from batch-local candidate numbering.
// The registry also drives circular keyboard navigation across anchors.
package anchor
