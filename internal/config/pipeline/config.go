// Package pipeline provides configuration for the snapshot pipeline.
package pipeline

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

const (
	// defaultFetchTimeout bounds the whole page fetch.
	defaultFetchTimeout = 30 * time.Second
	// defaultMaxRedirects caps redirect chains.
	defaultMaxRedirects = 5
	// defaultMaxBodyBytes caps fetched page bodies.
	defaultMaxBodyBytes = 5 * 1024 * 1024 // 5 MB
	// defaultUserAgent identifies pagekeep to origin servers.
	defaultUserAgent = "Mozilla/5.0 (compatible; Pagekeep/1.0; +https://pagekeep.app/bot)"
)

// Config represents snapshot pipeline configuration.
type Config struct {
	// FetchTimeout is the wall-clock bound for a page fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// MaxRedirects caps redirect chain length.
	MaxRedirects int `yaml:"max_redirects"`
	// MaxBodyBytes caps fetched body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// UserAgent is sent on page fetches.
	UserAgent string `yaml:"user_agent"`
	// RespectRobots enables the robots.txt pre-fetch check. Off by
	// default: archiving acts on the saving user's behalf.
	RespectRobots bool `yaml:"respect_robots"`
	// TwitterOEmbedEndpoint overrides the tweet embed API.
	TwitterOEmbedEndpoint string `yaml:"twitter_oembed_endpoint"`
	// TwitterMirror overrides the tweet markup mirror.
	TwitterMirror string `yaml:"twitter_mirror"`
	// RedditMirror overrides the Reddit markup mirror.
	RedditMirror string `yaml:"reddit_mirror"`
}

// NewConfig returns pipeline configuration with default values.
func NewConfig() *Config {
	return &Config{
		FetchTimeout: defaultFetchTimeout,
		MaxRedirects: defaultMaxRedirects,
		MaxBodyBytes: defaultMaxBodyBytes,
		UserAgent:    defaultUserAgent,
	}
}

// LoadFromViper loads pipeline configuration from Viper.
func LoadFromViper(v *viper.Viper) *Config {
	cfg := NewConfig()

	if v.IsSet("pipeline.fetch_timeout") {
		cfg.FetchTimeout = v.GetDuration("pipeline.fetch_timeout")
	}
	if v.IsSet("pipeline.max_redirects") {
		cfg.MaxRedirects = v.GetInt("pipeline.max_redirects")
	}
	if v.IsSet("pipeline.max_body_bytes") {
		cfg.MaxBodyBytes = v.GetInt64("pipeline.max_body_bytes")
	}
	if v.IsSet("pipeline.user_agent") {
		cfg.UserAgent = v.GetString("pipeline.user_agent")
	}
	if v.IsSet("pipeline.respect_robots") {
		cfg.RespectRobots = v.GetBool("pipeline.respect_robots")
	}
	if v.IsSet("pipeline.twitter_oembed_endpoint") {
		cfg.TwitterOEmbedEndpoint = v.GetString("pipeline.twitter_oembed_endpoint")
	}
	if v.IsSet("pipeline.twitter_mirror") {
		cfg.TwitterMirror = v.GetString("pipeline.twitter_mirror")
	}
	if v.IsSet("pipeline.reddit_mirror") {
		cfg.RedditMirror = v.GetString("pipeline.reddit_mirror")
	}

	return cfg
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.MaxRedirects < 0 {
		return errors.New("max_redirects must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}

	return nil
}
