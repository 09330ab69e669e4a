package storage_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/config/storage"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := storage.NewConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.Equal(t, "pagekeep-snapshots", cfg.Bucket)
	assert.Equal(t, "snapshots", cfg.Prefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromViper(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("storage.enabled", true)
	v.Set("storage.endpoint", "minio.internal.example:9000")
	v.Set("storage.access_key", "key")
	v.Set("storage.secret_key", "secret")
	v.Set("storage.use_ssl", true)
	v.Set("storage.bucket", "archive")

	cfg := storage.LoadFromViper(v)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "minio.internal.example:9000", cfg.Endpoint)
	assert.Equal(t, "key", cfg.AccessKey)
	assert.Equal(t, "secret", cfg.SecretKey)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, "archive", cfg.Bucket)
	assert.Equal(t, "snapshots", cfg.Prefix)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("disabled skips checks", func(t *testing.T) {
		t.Parallel()

		cfg := storage.NewConfig()
		cfg.Endpoint = ""
		cfg.Bucket = ""

		require.NoError(t, cfg.Validate())
	})

	t.Run("enabled requires endpoint", func(t *testing.T) {
		t.Parallel()

		cfg := storage.NewConfig()
		cfg.Enabled = true
		cfg.Endpoint = ""

		require.Error(t, cfg.Validate())
	})

	t.Run("enabled requires bucket", func(t *testing.T) {
		t.Parallel()

		cfg := storage.NewConfig()
		cfg.Enabled = true
		cfg.Bucket = ""

		require.Error(t, cfg.Validate())
	})
}
