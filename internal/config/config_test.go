package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DOWNLOAD_DIR", "RETENTION_HOURS", "CLEANUP_CRON", "YTDLP_PATH", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "downloads", cfg.Storage.DownloadDir)
	assert.Equal(t, 24, cfg.Storage.RetentionHours)
	assert.Equal(t, "0 0 * * *", cfg.Storage.CleanupCron)
	assert.Equal(t, "yt-dlp", cfg.Tool.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNewFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DOWNLOAD_DIR", "/data/dl")
	t.Setenv("RETENTION_HOURS", "48")
	t.Setenv("YTDLP_PATH", "/usr/local/bin/yt-dlp")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/dl", cfg.Storage.DownloadDir)
	assert.Equal(t, 48, cfg.Storage.RetentionHours)
	assert.Equal(t, "/usr/local/bin/yt-dlp", cfg.Tool.Path)
}

func TestNewFromEnv_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "70000")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestNewFromEnv_MalformedIntFallsBackToDefault(t *testing.T) {
	t.Setenv("RETENTION_HOURS", "not-a-number")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Storage.RetentionHours)
}

func TestNewFromEnv_Options(t *testing.T) {
	cfg, err := NewFromEnv(func(c *Config) {
		c.Storage.DownloadDir = "/tmp/override"
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Storage.DownloadDir)
}
