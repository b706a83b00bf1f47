// Package sampler extracts scoreable content candidates from parsed HTML
// documents. It walks the document in source order, collecting text from
// content-bearing elements and values from editable controls, enforcing
// per-item and total character budgets, and always appending a whole-page
// digest candidate as a fallback signal for the classifier.
package sampler
