// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage persists uploaded media objects. Two backends exist:
// local disk for single-box deployments and S3-compatible object
// storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Object describes one stored media object.
type Object struct {
	Key      string
	Size     int64
	Modified time.Time
}

// Backend stores and serves media objects by key.
type Backend interface {
	// Put stores the object and returns its public URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the objects under a key prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// KeyFromURL maps a public URL back to its object key.
	KeyFromURL(url string) (string, bool)
}

// MakeKey builds the object key for an upload: the kind's folder, the
// upload time and a sanitized filename, e.g. images/1714060800-cover.png.
func MakeKey(kind, filename string, at time.Time) string {
	return fmt.Sprintf("%ss/%d-%s", kind, at.Unix(), sanitizeFilename(filename))
}

// ThumbKey maps an image key to the key of its thumbnail variant.
// Thumbnails are always JPEG, so the extension is replaced.
func ThumbKey(imageKey string) string {
	base := path.Base(imageKey)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return "thumbs/" + base + ".jpg"
}

// sanitizeFilename keeps the base name and replaces anything outside
// a safe charset so keys never escape their folder.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}
