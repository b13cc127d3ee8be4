package metrics

// Config holds configuration for metrics exposure.
type Config struct {
	// Enabled toggles the /metrics endpoint.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the scrape path.
	Path string `mapstructure:"path" default:"/metrics"`
}
