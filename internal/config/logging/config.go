// Package logging provides logger configuration.
package logging

import (
	"github.com/spf13/viper"

	"github.com/pagekeep/pagekeep/internal/logger"
)

// LoadFromViper loads logger configuration from Viper.
func LoadFromViper(v *viper.Viper) logger.Config {
	cfg := logger.Config{Level: "info", Encoding: "console"}

	if v.IsSet("logging.level") {
		cfg.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.encoding") {
		cfg.Encoding = v.GetString("logging.encoding")
	}
	if v.IsSet("logging.development") {
		cfg.Development = v.GetBool("logging.development")
	}

	return cfg
}
