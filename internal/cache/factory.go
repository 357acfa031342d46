// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	// Type is "memory" or "redis".
	Type string

	// RedisURL is the connection URL for the redis type.
	RedisURL string

	// Prefix is prepended to Redis keys.
	Prefix string

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// CleanupInterval is the memory backend's sweep interval.
	CleanupInterval time.Duration
}

// DefaultConfig returns the memory backend with an hour TTL.
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		Prefix:          "staffblog:",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	}
}

// New creates the configured backend. A Redis backend that cannot be
// reached falls back to memory so the app still starts.
func New(cfg Config, log *slog.Logger) Cacher {
	if cfg.Type == "redis" && cfg.RedisURL != "" {
		c, err := NewRedisCache(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			log.Info("using redis cache", "prefix", cfg.Prefix)
			return c
		}
		log.Warn("redis cache unavailable, falling back to memory", "error", err)
	}
	return NewMemoryCache(cfg.DefaultTTL, cfg.CleanupInterval)
}
