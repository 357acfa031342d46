// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the caching layer: a byte-oriented Cacher
// interface with in-memory and Redis backends, plus a typed wrapper
// for the published post list.
package cache

import (
	"context"
	"time"
)

// Cacher is the backend contract. Implementations must be safe for
// concurrent use. Values are []byte so memory and Redis behave alike.
type Cacher interface {
	// Get returns the value, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Error is a cache error constant.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheMiss means the key is absent or expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed means the cache was closed.
	ErrCacheClosed Error = "cache closed"
)
