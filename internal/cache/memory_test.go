// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	src := []byte("original")
	require.NoError(t, c.Set(ctx, "k", src, 0))
	src[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	require.NoError(t, c.Close())

	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, c.Set(context.Background(), "k", nil, 0), ErrCacheClosed)

	// Closing twice is fine.
	assert.NoError(t, c.Close())
}
