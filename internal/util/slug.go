// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose utility functions including
// URL slug generation and validation.
package util

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// slugRegex matches runs of characters outside [a-z0-9-]
	slugRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a string to a URL-friendly slug.
// It transliterates non-ASCII characters, converts to lowercase,
// replaces separator runs with single hyphens, and trims leading and
// trailing hyphens. Empty or whitespace-only input yields "".
func Slugify(s string) string {
	// Transliterate accents and non-Latin scripts to ASCII
	result := unidecode.Unidecode(s)

	result = strings.ToLower(result)

	// Replace spaces with hyphens so word boundaries survive
	result = strings.ReplaceAll(result, " ", "-")

	// Drop everything else outside [a-z0-9-]
	result = slugRegex.ReplaceAllString(result, "")

	// Collapse consecutive hyphens
	result = multipleHyphens.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}
