package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVariables = []string{
	"PORTAL_HTTP_PORT",
	"PORTAL_SQLITE_DSN",
	"PORTAL_TOKEN_SECRET",
	"PORTAL_TOKEN_TTL",
	"PORTAL_TIMEZONE",
	"PORTAL_LOG_LEVEL",
	"PORTAL_S3_BUCKET",
	"PORTAL_S3_REGION",
	"PORTAL_S3_ENDPOINT",
	"PORTAL_S3_ACCESS_KEY",
	"PORTAL_S3_SECRET_KEY",
	"PORTAL_MATERIAL_URL_TTL",
	"PORTAL_MATERIAL_MAX_BYTES",
}

// clearEnvironment blanks every variable for the duration of the test.
func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range allVariables {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_TOKEN_SECRET", "super-secret")
		t.Setenv("PORTAL_S3_BUCKET", "materials")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, "portal.db", cfg.SQLiteDSN)
		assert.Equal(t, "super-secret", cfg.TokenSecret)
		assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
		assert.Equal(t, time.UTC, cfg.Location)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, time.Hour, cfg.MaterialURLTTL)
		assert.Equal(t, int64(10<<20), cfg.MaterialMaxBytes)
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnvironment(t)

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, "required environment variables are not set: PORTAL_TOKEN_SECRET, PORTAL_S3_BUCKET", err.Error())
	})

	t.Run("requires a secret key alongside an access key", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_TOKEN_SECRET", "secret")
		t.Setenv("PORTAL_S3_BUCKET", "materials")
		t.Setenv("PORTAL_S3_ACCESS_KEY", "minioadmin")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORTAL_S3_SECRET_KEY")
	})

	t.Run("parses duration, numeric and location fields", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_TOKEN_SECRET", "secret-value")
		t.Setenv("PORTAL_S3_BUCKET", "materials")
		t.Setenv("PORTAL_HTTP_PORT", "9090")
		t.Setenv("PORTAL_SQLITE_DSN", "/tmp/portal.db")
		t.Setenv("PORTAL_TOKEN_TTL", "2h")
		t.Setenv("PORTAL_TIMEZONE", "Asia/Tokyo")
		t.Setenv("PORTAL_LOG_LEVEL", "DEBUG")
		t.Setenv("PORTAL_S3_ENDPOINT", "http://127.0.0.1:9000")
		t.Setenv("PORTAL_MATERIAL_URL_TTL", "15m")
		t.Setenv("PORTAL_MATERIAL_MAX_BYTES", "2048")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.Equal(t, "/tmp/portal.db", cfg.SQLiteDSN)
		assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
		assert.Equal(t, "Asia/Tokyo", cfg.Location.String())
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "http://127.0.0.1:9000", cfg.S3Endpoint)
		assert.Equal(t, 15*time.Minute, cfg.MaterialURLTTL)
		assert.Equal(t, int64(2048), cfg.MaterialMaxBytes)
	})

	t.Run("collects invalid values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_TOKEN_SECRET", "secret-value")
		t.Setenv("PORTAL_S3_BUCKET", "materials")
		t.Setenv("PORTAL_HTTP_PORT", "http")
		t.Setenv("PORTAL_TOKEN_TTL", "-1h")
		t.Setenv("PORTAL_TIMEZONE", "Mars/Olympus")
		t.Setenv("PORTAL_LOG_LEVEL", "loud")
		t.Setenv("PORTAL_MATERIAL_MAX_BYTES", "0")

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t,
			"environment variables have invalid values: PORTAL_HTTP_PORT, PORTAL_TOKEN_TTL, PORTAL_TIMEZONE, PORTAL_LOG_LEVEL, PORTAL_MATERIAL_MAX_BYTES",
			err.Error(),
		)
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
	})

	t.Run("fills unset variables without overriding", func(t *testing.T) {
		clearEnvironment(t)
		require.NoError(t, os.Unsetenv("PORTAL_S3_BUCKET"))
		t.Setenv("PORTAL_TOKEN_SECRET", "from-process")

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("PORTAL_S3_BUCKET=from-file\nPORTAL_TOKEN_SECRET=from-file\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("PORTAL_S3_BUCKET") })

		require.NoError(t, LoadDotEnv(path))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.S3Bucket)
		assert.Equal(t, "from-process", cfg.TokenSecret)
	})
}
