// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores media on the filesystem and serves it under a public
// base path, usually /media.
type Local struct {
	root     string
	basePath string
}

// NewLocal creates a disk-backed store rooted at dir. basePath is the
// URL prefix the files are served under.
func NewLocal(dir, basePath string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &Local{
		root:     dir,
		basePath: strings.TrimSuffix(basePath, "/"),
	}, nil
}

// Root is the directory files are stored under, for the file server.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	dst, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating media subdirectory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("closing media file: %w", err)
	}

	return l.basePath + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	dst, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting media file: %w", err)
	}
	return nil
}

func (l *Local) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.Walk(l.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		out = append(out, Object{Key: key, Size: info.Size(), Modified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing media files: %w", err)
	}
	return out, nil
}

func (l *Local) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, l.basePath+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// path resolves a key under the root, refusing traversal outside it.
func (l *Local) path(key string) (string, error) {
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, filepath.Clean(l.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return dst, nil
}
