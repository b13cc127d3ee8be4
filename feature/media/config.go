package media

import (
	"net/url"
	"time"

	"media-reconciler/core/reconcile"
)

// Config holds configuration for the media search feature.
type Config struct {
	// APIURL is the Action API endpoint of the media repository.
	APIURL string `mapstructure:"api_url" default:"https://commons.wikimedia.org/w/api.php"`
	// PageAPIURL is the Action API endpoint of the wiki whose pages are
	// illustrated. It is used to resolve entity ids and the local site.
	PageAPIURL string `mapstructure:"page_api_url" default:"https://en.wikipedia.org/w/api.php"`
	// UserAgent identifies the client to the API operators.
	UserAgent string `mapstructure:"user_agent" default:"media-reconciler/1.0"`
	// Language is the default label language.
	Language string `mapstructure:"language" default:"en"`
	// DefaultLimit is used when a request does not name a limit.
	DefaultLimit int `mapstructure:"default_limit" default:"10"`
	// MaxLimit caps the limit a caller may ask for.
	MaxLimit int `mapstructure:"max_limit" default:"50"`
	// OverFetchFactor scales the limit into the initial request size.
	OverFetchFactor int `mapstructure:"over_fetch_factor" default:"2"`
	// CeilingFactor scales the limit into the offset ceiling.
	CeilingFactor int `mapstructure:"ceiling_factor" default:"3"`
	// MaxRequestSize caps the items requested per round trip.
	MaxRequestSize int `mapstructure:"max_request_size" default:"20"`
	// MaxRounds bounds the round trips of one search.
	MaxRounds int `mapstructure:"max_rounds" default:"50"`
	// LocalSite is the host whose usage never counts. Derived from
	// PageAPIURL when empty.
	LocalSite string `mapstructure:"local_site" default:""`
	// AllowedSuffixes lists the host suffixes of sites whose usage counts.
	// Mirrors the ReaderExperimentsImageBrowsingExternalWikis setting of the
	// wiki extension; keep the two lists in sync when either changes.
	AllowedSuffixes []string `mapstructure:"allowed_suffixes" default:"wikipedia.org,wikidata.org"`
	// UsageLimit is the usage entries requested per round trip.
	UsageLimit int `mapstructure:"usage_limit" default:"500"`
	// ThumbWidth is the requested thumbnail width in pixels.
	ThumbWidth int `mapstructure:"thumb_width" default:"300"`
	// CacheTTL is how long search results are reused. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"5m"`
	// TimeoutSeconds bounds a single round trip.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
	// RequestsPerSecond limits outbound round trips. Zero means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"5"`
	// Burst is the number of round trips allowed at once.
	Burst int `mapstructure:"burst" default:"5"`
}

// Options returns the engine budget constants.
func (c Config) Options() reconcile.Options {
	return reconcile.Options{
		OverFetchFactor: c.OverFetchFactor,
		CeilingFactor:   c.CeilingFactor,
		MaxRequestSize:  c.MaxRequestSize,
		MaxRounds:       c.MaxRounds,
	}
}

// Policy returns the usage qualification policy.
func (c Config) Policy() UsagePolicy {
	local := c.LocalSite
	if local == "" && c.PageAPIURL != "" {
		if u, err := url.Parse(c.PageAPIURL); err == nil {
			local = u.Hostname()
		}
	}
	return UsagePolicy{LocalSite: local, AllowedSuffixes: c.AllowedSuffixes}
}

// ClampLimit applies the default and the maximum to a requested limit.
func (c Config) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = c.DefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}
	if c.MaxLimit > 0 && limit > c.MaxLimit {
		limit = c.MaxLimit
	}
	return limit
}
