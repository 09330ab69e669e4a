// Package storage provides MinIO configuration for snapshot storage.
package storage

import (
	"errors"

	"github.com/spf13/viper"
)

// Config represents MinIO configuration for snapshot storage.
type Config struct {
	// Enabled toggles persistence; when off, results are only returned.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the MinIO server address (e.g. "minio:9000").
	Endpoint string `yaml:"endpoint"`
	// AccessKey for MinIO authentication.
	AccessKey string `yaml:"access_key"`
	// SecretKey for MinIO authentication.
	SecretKey string `yaml:"secret_key"`
	// UseSSL enables HTTPS for MinIO connections.
	UseSSL bool `yaml:"use_ssl"`
	// Bucket holds snapshot objects.
	Bucket string `yaml:"bucket"`
	// Prefix is prepended to every object path.
	Prefix string `yaml:"prefix"`
}

// NewConfig returns storage configuration with default values.
func NewConfig() *Config {
	return &Config{
		Enabled:  false,
		Endpoint: "localhost:9000",
		Bucket:   "pagekeep-snapshots",
		Prefix:   "snapshots",
	}
}

// LoadFromViper loads storage configuration from Viper.
func LoadFromViper(v *viper.Viper) *Config {
	cfg := NewConfig()

	if v.IsSet("storage.enabled") {
		cfg.Enabled = v.GetBool("storage.enabled")
	}
	if v.IsSet("storage.endpoint") {
		cfg.Endpoint = v.GetString("storage.endpoint")
	}
	if v.IsSet("storage.access_key") {
		cfg.AccessKey = v.GetString("storage.access_key")
	}
	if v.IsSet("storage.secret_key") {
		cfg.SecretKey = v.GetString("storage.secret_key")
	}
	if v.IsSet("storage.use_ssl") {
		cfg.UseSSL = v.GetBool("storage.use_ssl")
	}
	if v.IsSet("storage.bucket") {
		cfg.Bucket = v.GetString("storage.bucket")
	}
	if v.IsSet("storage.prefix") {
		cfg.Prefix = v.GetString("storage.prefix")
	}

	return cfg
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return errors.New("storage endpoint is required when storage is enabled")
	}
	if c.Bucket == "" {
		return errors.New("storage bucket is required when storage is enabled")
	}

	return nil
}
