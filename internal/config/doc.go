// Package config provides configuration structures and utilities for marketguard.
// It defines the main configuration options for content scanning, sampling
// limits, risk service endpoints, and report generation preferences.
package config
