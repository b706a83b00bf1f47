package config

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing scan behavior per site, e.g. raising the risk
// threshold on a trusted marketplace or skipping known-safe regions.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when fetching this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Threshold overrides the global risk threshold for this site.
	// If zero, the global Threshold is used.
	Threshold float64 `yaml:"threshold,omitempty"`

	// SkipSelectors are CSS selectors whose subtrees are excluded from
	// sampling on this site. Useful for chrome, navigation, or regions
	// the operator has already vetted.
	SkipSelectors []string `yaml:"skipSelectors,omitempty"`

	// ScanMedia overrides the global media scanning setting for this site.
	// A nil value means use the global setting.
	ScanMedia *bool `yaml:"scanMedia,omitempty"`
}

// File represents the structure of the .marketguard configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys should be the hostname without the protocol (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific hostname.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Threshold != 0 {
			result.Threshold = siteConfig.Threshold
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.SkipSelectors) > 0 {
			result.SkipSelectors = siteConfig.SkipSelectors
		}
		if siteConfig.ScanMedia != nil {
			result.ScanMedia = siteConfig.ScanMedia
		}
	}

	return result
}
