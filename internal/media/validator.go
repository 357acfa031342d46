// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media validates candidate upload files by metadata before any
// bytes are stored. Validation never reads file contents.
package media

import (
	"github.com/olegiv/staffblog/internal/model"
)

// MaxFileSize is the upload cap for both images and videos.
const MaxFileSize = 10 * 1024 * 1024 // 10MB

// Rejection messages, reported inline next to the offending control.
const (
	MsgImageTooLarge      = "Image is too large. Maximum allowed: 10MB"
	MsgVideoTooLarge      = "Video is too large. Maximum allowed: 10MB"
	MsgInvalidImageFormat = "Invalid image format. Use JPG, PNG, WebP or GIF"
	MsgInvalidVideoFormat = "Invalid video format. Use MP4, WebM, OGG or MOV"
)

// allowedImageTypes are the accepted image MIME types. image/jpg is a
// browser alias for image/jpeg.
var allowedImageTypes = map[string]bool{
	model.MimeTypeJPEG:   true,
	model.MimeTypeJPGAlt: true,
	model.MimeTypePNG:    true,
	model.MimeTypeWebP:   true,
	model.MimeTypeGIF:    true,
}

var allowedVideoTypes = map[string]bool{
	model.MimeTypeMP4:  true,
	model.MimeTypeWebM: true,
	model.MimeTypeOGG:  true,
	model.MimeTypeMOV:  true,
}

// File describes a candidate upload by metadata only.
type File struct {
	Size     int64
	MimeType string
}

// ValidationError is a rejected file. It renders as a field-level
// message, never as a server error.
type ValidationError struct {
	Kind    string // model.MediaKindImage or model.MediaKindVideo
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks a candidate file against the size cap and the
// kind-specific MIME allow-list. Rules run in order; the first failure
// wins. A nil return means the file is accepted.
func Validate(f File, kind string) error {
	if f.Size > MaxFileSize {
		msg := MsgImageTooLarge
		if kind == model.MediaKindVideo {
			msg = MsgVideoTooLarge
		}
		return &ValidationError{Kind: kind, Message: msg}
	}

	switch kind {
	case model.MediaKindImage:
		if !allowedImageTypes[f.MimeType] {
			return &ValidationError{Kind: kind, Message: MsgInvalidImageFormat}
		}
	case model.MediaKindVideo:
		if !allowedVideoTypes[f.MimeType] {
			return &ValidationError{Kind: kind, Message: MsgInvalidVideoFormat}
		}
	}

	return nil
}
