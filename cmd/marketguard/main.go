// Package main provides the entry point for the MarketGuard CLI.
//
// MarketGuard scans web pages for scam and fraud-risk content. It samples
// visible page text and media, sends it to external risk-scoring services,
// and tracks the risky regions it finds across re-scans.
//
// Usage:
//
//	marketguard scan <url>
//	marketguard watch <url>
//
// See --help for all available options.
package main

// main is the entry point for MarketGuard.
func main() {
	Execute()
}
