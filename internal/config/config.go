// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakPasswords are defaults from docs and examples that must
// never reach a real deployment.
var knownWeakPasswords = []string{
	"changeme-please",
	"password1234",
	"staffblog-admin",
	"administrator",
}

// Config holds the application configuration.
type Config struct {
	DBPath     string `env:"STAFFBLOG_DB_PATH" envDefault:"./data/staffblog.db"`
	ServerHost string `env:"STAFFBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"STAFFBLOG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"STAFFBLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"STAFFBLOG_LOG_LEVEL" envDefault:"info"`

	// SessionSecret keys CSRF protection. Must be at least 32 bytes.
	SessionSecret  string   `env:"STAFFBLOG_SESSION_SECRET,required"`
	TrustedOrigins []string `env:"STAFFBLOG_TRUSTED_ORIGINS" envSeparator:","`

	// Shared admin credential
	AdminEmail    string `env:"STAFFBLOG_ADMIN_EMAIL" envDefault:"admin@staffblog.local"`
	AdminPassword string `env:"STAFFBLOG_ADMIN_PASSWORD,required"`
	AdminName     string `env:"STAFFBLOG_ADMIN_NAME" envDefault:"Administrator"`

	// Media storage: "local" or "s3"
	StorageBackend string `env:"STAFFBLOG_STORAGE" envDefault:"local"`
	MediaDir       string `env:"STAFFBLOG_MEDIA_DIR" envDefault:"./media"`
	MediaBasePath  string `env:"STAFFBLOG_MEDIA_BASE_PATH" envDefault:"/media"`

	S3AccessKeyID     string `env:"STAFFBLOG_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"STAFFBLOG_S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"STAFFBLOG_S3_ENDPOINT"`
	S3Region          string `env:"STAFFBLOG_S3_REGION"`
	S3Bucket          string `env:"STAFFBLOG_S3_BUCKET"`
	S3PublicURL       string `env:"STAFFBLOG_S3_PUBLIC_URL"`

	// Document conversion service
	ConvertURL string `env:"STAFFBLOG_CONVERT_URL" envDefault:"http://localhost:8090/convert"`

	// Cache
	RedisURL    string `env:"STAFFBLOG_REDIS_URL"`
	CachePrefix string `env:"STAFFBLOG_CACHE_PREFIX" envDefault:"staffblog:"`
	CacheTTL    int    `env:"STAFFBLOG_CACHE_TTL" envDefault:"300"` // seconds
}

// IsDevelopment reports whether the app runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns host:port for the HTTP listener.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseS3 reports whether media goes to object storage.
func (c Config) UseS3() bool {
	return c.StorageBackend == "s3"
}

// MinAdminPasswordLength is the floor for the shared credential.
const MinAdminPasswordLength = 12

// Load parses the environment and validates the admin credential.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("STAFFBLOG_SESSION_SECRET must be at least 32 bytes, got %d; "+
			"generate one with: openssl rand -base64 32", len(cfg.SessionSecret))
	}

	if len(cfg.AdminPassword) < MinAdminPasswordLength {
		return nil, fmt.Errorf("STAFFBLOG_ADMIN_PASSWORD must be at least %d characters, got %d; "+
			"generate one with: openssl rand -base64 18",
			MinAdminPasswordLength, len(cfg.AdminPassword))
	}
	for _, weak := range knownWeakPasswords {
		if strings.EqualFold(cfg.AdminPassword, weak) {
			return nil, fmt.Errorf("STAFFBLOG_ADMIN_PASSWORD is a known default value; " +
				"generate one with: openssl rand -base64 18")
		}
	}
	if !hasMinimumEntropy(cfg.AdminPassword) {
		slog.Warn("STAFFBLOG_ADMIN_PASSWORD has low character diversity; " +
			"consider generating a random one with: openssl rand -base64 18")
	}

	if cfg.UseS3() {
		switch {
		case cfg.S3Bucket == "":
			return nil, fmt.Errorf("STAFFBLOG_S3_BUCKET is required with STAFFBLOG_STORAGE=s3")
		case cfg.S3PublicURL == "":
			return nil, fmt.Errorf("STAFFBLOG_S3_PUBLIC_URL is required with STAFFBLOG_STORAGE=s3")
		case cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "":
			return nil, fmt.Errorf("S3 credentials are required with STAFFBLOG_STORAGE=s3")
		}
	}

	return cfg, nil
}

// hasMinimumEntropy requires at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
