package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "PORTAL_"

// Config captures environment driven configuration values for the portal.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	TokenSecret      string
	TokenTTL         time.Duration
	Location         *time.Location
	LogLevel         string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	MaterialURLTTL   time.Duration
	MaterialMaxBytes int64
}

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// Variables that are already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing required variable and
// every unparsable value is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "portal.db",
		TokenTTL:         24 * time.Hour,
		Location:         time.UTC,
		LogLevel:         "info",
		S3Region:         "us-east-1",
		MaterialURLTTL:   time.Hour,
		MaterialMaxBytes: 10 << 20,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := lookup("TOKEN_SECRET"); secret == "" {
		missing = append(missing, envPrefix+"TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttl, ok := parseDuration("TOKEN_TTL", &invalid); ok {
		cfg.TokenTTL = ttl
	}

	if tz := lookup("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if level := lookup("LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if bucket := lookup("S3_BUCKET"); bucket == "" {
		missing = append(missing, envPrefix+"S3_BUCKET")
	} else {
		cfg.S3Bucket = bucket
	}
	if region := lookup("S3_REGION"); region != "" {
		cfg.S3Region = region
	}
	cfg.S3Endpoint = lookup("S3_ENDPOINT")
	cfg.S3AccessKey = lookup("S3_ACCESS_KEY")
	cfg.S3SecretKey = lookup("S3_SECRET_KEY")
	if cfg.S3AccessKey != "" && cfg.S3SecretKey == "" {
		missing = append(missing, envPrefix+"S3_SECRET_KEY")
	}

	if ttl, ok := parseDuration("MATERIAL_URL_TTL", &invalid); ok {
		cfg.MaterialURLTTL = ttl
	}

	if maxValue := lookup("MATERIAL_MAX_BYTES"); maxValue != "" {
		maxBytes, err := strconv.ParseInt(maxValue, 10, 64)
		if err != nil || maxBytes <= 0 {
			invalid = append(invalid, envPrefix+"MATERIAL_MAX_BYTES")
		} else {
			cfg.MaterialMaxBytes = maxBytes
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func lookup(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func parseDuration(name string, invalid *[]string) (time.Duration, bool) {
	value := lookup(name)
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, envPrefix+name)
		return 0, false
	}
	return d, true
}
