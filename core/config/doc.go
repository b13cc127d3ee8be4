// Package config provides configuration management for the media reconciler.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from the `default` struct tags
// of each section, keyed by their `mapstructure` tags.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP port, API key, request timeout
//   - Media: API endpoints, search budget, usage policy, cache and rate limit
//   - Database: Known-media store (mysql or sqlite)
//   - Storage: S3/MinIO bucket for recorded API archives
//   - Metrics: Prometheus endpoint
//   - Log: Logging level and format
//
// Nested keys map to upper-case environment variables joined by
// underscores, e.g. MEDIA_CACHE_TTL=10m or SERVER_PORT=9090.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Media.APIURL)
package config
