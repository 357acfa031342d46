// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package browse filters the published post list for the public site:
// debounced free-text search, exact category selection, and reset.
package browse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/olegiv/staffblog/internal/model"
)

// DebounceDelay is how long search input must be quiet before the
// filter runs. Keystrokes inside the window replace the pending query.
const DebounceDelay = 300 * time.Millisecond

// Mode says which filter produced the visible posts.
type Mode int

const (
	// ModeAll shows every published post.
	ModeAll Mode = iota
	// ModeSearch shows free-text matches.
	ModeSearch
	// ModeCategory shows one category.
	ModeCategory
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeSearch:
		return "search"
	case ModeCategory:
		return "category"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Lister supplies the published posts, newest first.
type Lister interface {
	ListPublished(ctx context.Context) ([]model.Post, error)
}

// Browser holds the public listing state. Safe for concurrent use.
type Browser struct {
	lister Lister
	fold   cases.Caser

	mu       sync.Mutex
	loaded   bool
	posts    []model.Post
	mode     Mode
	query    string
	category string
	visible  []model.Post

	timer        *time.Timer
	pendingQuery string
}

// New creates a Browser over the given post source.
func New(l Lister) *Browser {
	return &Browser{
		lister: l,
		fold:   cases.Fold(),
	}
}

// Load fetches the published posts and shows them all. Call once before
// filtering; later calls refresh the underlying set and reapply the
// current filter.
func (b *Browser) Load(ctx context.Context) error {
	posts, err := b.lister.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("loading posts: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = true
	b.posts = posts
	b.applyLocked()
	return nil
}

// Loaded reports whether Load has completed at least once.
func (b *Browser) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Mode reports which filter is active.
func (b *Browser) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Query returns the active search query, empty outside search mode.
func (b *Browser) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Category returns the selected category, empty outside category mode.
func (b *Browser) Category() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category
}

// Visible returns the posts the active filter lets through, in the
// order the lister supplied them.
func (b *Browser) Visible() []model.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Post, len(b.visible))
	copy(out, b.visible)
	return out
}

// Search schedules a free-text filter for q after DebounceDelay. A
// newer call within the window replaces the pending query. An empty or
// blank query clears search and shows everything immediately.
func (b *Browser) Search(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelPendingLocked()

	if strings.TrimSpace(q) == "" {
		b.resetLocked()
		return
	}

	b.pendingQuery = q
	b.timer = time.AfterFunc(DebounceDelay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// A Reset or newer Search may have cancelled this run.
		if b.pendingQuery == "" {
			return
		}
		b.mode = ModeSearch
		b.query = b.pendingQuery
		b.category = ""
		b.pendingQuery = ""
		b.timer = nil
		b.applyLocked()
	})
}

// SearchNow applies a free-text filter immediately, skipping the
// debounce window. Used for form submits.
func (b *Browser) SearchNow(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelPendingLocked()
	if strings.TrimSpace(q) == "" {
		b.resetLocked()
		return
	}
	b.mode = ModeSearch
	b.query = q
	b.category = ""
	b.applyLocked()
}

// SelectCategory switches to an exact category filter immediately and
// cancels any pending search. Unknown categories show an empty list.
func (b *Browser) SelectCategory(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelPendingLocked()
	b.mode = ModeCategory
	b.category = name
	b.query = ""
	b.applyLocked()
}

// Reset clears every filter and shows all posts.
func (b *Browser) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelPendingLocked()
	b.resetLocked()
}

// CategoryCounts returns each category present in the loaded posts with
// its post count, sorted by name.
func (b *Browser) CategoryCounts() []CategoryCount {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[string]int)
	for i := range b.posts {
		if name := b.posts[i].CategoryName(); name != "" {
			counts[name]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CategoryCount pairs a category name with how many posts carry it.
type CategoryCount struct {
	Name  string
	Count int
}

func (b *Browser) cancelPendingLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pendingQuery = ""
}

func (b *Browser) resetLocked() {
	b.mode = ModeAll
	b.query = ""
	b.category = ""
	b.applyLocked()
}

// applyLocked recomputes the visible set from the active filter.
func (b *Browser) applyLocked() {
	switch b.mode {
	case ModeSearch:
		q := b.fold.String(b.query)
		b.visible = b.visible[:0:0]
		for i := range b.posts {
			if b.matches(&b.posts[i], q) {
				b.visible = append(b.visible, b.posts[i])
			}
		}
	case ModeCategory:
		b.visible = b.visible[:0:0]
		for i := range b.posts {
			if b.posts[i].CategoryName() == b.category {
				b.visible = append(b.visible, b.posts[i])
			}
		}
	default:
		b.visible = append(b.visible[:0:0], b.posts...)
	}
}

// matches does a case-folded substring check over title, content and
// category. q must already be folded.
func (b *Browser) matches(p *model.Post, q string) bool {
	if strings.Contains(b.fold.String(p.Title), q) {
		return true
	}
	if strings.Contains(b.fold.String(p.Content), q) {
		return true
	}
	return strings.Contains(b.fold.String(p.CategoryName()), q)
}
