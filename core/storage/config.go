package storage

// Config holds configuration for the fixture archive store.
type Config struct {
	// Enabled turns the object store on. Without it fixtures go to local files.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the bucket recorded API archives are kept in.
	Bucket string `mapstructure:"bucket" default:"media-fixtures"`
	// Prefix is prepended to every archive object name.
	Prefix string `mapstructure:"prefix" default:"archives/"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// ObjectName returns the object name of an archive.
func (c Config) ObjectName(name string) string {
	return c.Prefix + name
}
