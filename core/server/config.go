package server

import "strconv"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// RequestTimeoutSeconds bounds a single media search request.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" default:"30"`
}

// IsValidPort checks if the configured port is a usable TCP port.
func (c Config) IsValidPort() bool {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return false
	}
	return port > 0 && port <= 65535
}

// Address returns the listen address for the server.
func (c Config) Address() string {
	return ":" + c.Port
}
