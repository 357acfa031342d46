// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"strings"
	"time"
)

// Categories is the authoritative category list, shared by the create
// and edit flows.
var Categories = []string{
	"About us",
	"HR",
	"Service",
	"Tower",
	"Front Desk",
	"Maintenance",
	"Valet",
	"Housekeeping",
}

// DefaultCategory is the category preselected on an empty draft.
var DefaultCategory = Categories[0]

// IsValidCategory reports whether name is in the authoritative list.
// Legacy rows may hold categories outside the list; those are rendered
// but never selectable.
func IsValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Media kinds.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// MIME types accepted for post media.
const (
	MimeTypeJPEG   = "image/jpeg"
	MimeTypeJPGAlt = "image/jpg" // browser alias for JPEG
	MimeTypePNG    = "image/png"
	MimeTypeWebP   = "image/webp"
	MimeTypeGIF    = "image/gif"
	MimeTypeMP4    = "video/mp4"
	MimeTypeWebM   = "video/webm"
	MimeTypeOGG    = "video/ogg"
	MimeTypeMOV    = "video/quicktime"
)

// MinContentLength is the minimum effective content length required
// before a post may be submitted.
const MinContentLength = 100

// Post represents a blog post.
type Post struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Content   string         `json:"content"`
	Category  sql.NullString `json:"category"`
	ImageURL  sql.NullString `json:"image_url"`
	VideoURL  sql.NullString `json:"video_url"`
	Published bool           `json:"published"`
	AuthorID  sql.NullString `json:"author_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt sql.NullTime   `json:"updated_at"`
}

// CategoryName returns the category or an empty string for legacy rows.
func (p Post) CategoryName() string {
	if p.Category.Valid {
		return p.Category.String
	}
	return ""
}

// Excerpt returns the first n bytes of the content with an ellipsis,
// for list views.
func (p Post) Excerpt(n int) string {
	content := strings.TrimSpace(p.Content)
	if len(content) <= n {
		return content
	}
	return content[:n] + "..."
}

// Paragraphs splits the content on blank lines. Content is stored and
// rendered as plain text, not markup.
func (p Post) Paragraphs() []string {
	var out []string
	for _, block := range strings.Split(p.Content, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
