// Package fetch retrieves target pages for scanning. Unlike a crawler it
// fetches single pages on demand: the watch loop re-fetches the same URL on
// every heartbeat and uses the page content hash as the mutation signal
// that drives rescans.
package fetch
