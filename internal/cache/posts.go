// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/olegiv/staffblog/internal/model"
)

const publishedPostsKey = "posts:published"

// PostsCache caches the published post list, the hottest read path on
// the public site. Any write to posts invalidates it.
type PostsCache struct {
	cache Cacher
	ttl   time.Duration
}

// NewPostsCache wraps a backend with post list serialization.
func NewPostsCache(c Cacher, ttl time.Duration) *PostsCache {
	return &PostsCache{cache: c, ttl: ttl}
}

// GetPublished returns the cached list, or false on a miss.
func (p *PostsCache) GetPublished(ctx context.Context) ([]model.Post, bool) {
	data, err := p.cache.Get(ctx, publishedPostsKey)
	if err != nil {
		return nil, false
	}
	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, false
	}
	return posts, true
}

// SetPublished stores the list. Errors are dropped; the cache is an
// optimization, not a source of truth.
func (p *PostsCache) SetPublished(ctx context.Context, posts []model.Post) {
	data, err := json.Marshal(posts)
	if err != nil {
		return
	}
	_ = p.cache.Set(ctx, publishedPostsKey, data, p.ttl)
}

// Invalidate drops the cached list after a post write.
func (p *PostsCache) Invalidate(ctx context.Context) {
	_ = p.cache.Delete(ctx, publishedPostsKey)
}
