// Package config loads pagekeep configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pagekeep/pagekeep/internal/config/logging"
	"github.com/pagekeep/pagekeep/internal/config/pipeline"
	"github.com/pagekeep/pagekeep/internal/config/storage"
	"github.com/pagekeep/pagekeep/internal/logger"
)

// Config aggregates all per-concern configurations.
type Config struct {
	Pipeline *pipeline.Config
	Storage  *storage.Config
	Logging  logger.Config
}

// Load reads configuration from the given file (optional) and PAGEKEEP_*
// environment variables, then validates it.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("PAGEKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pagekeep")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pagekeep")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Pipeline: pipeline.LoadFromViper(v),
		Storage:  storage.LoadFromViper(v),
		Logging:  logging.LoadFromViper(v),
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}

	return cfg, nil
}
