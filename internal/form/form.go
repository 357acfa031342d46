// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package form holds the editing state of a post between renders: field
// values, staged media, validation messages and submission phase.
package form

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/olegiv/staffblog/internal/media"
	"github.com/olegiv/staffblog/internal/model"
)

// Phase is the form's position in its lifecycle.
type Phase int

const (
	// PhaseEmpty is a fresh form with no edits.
	PhaseEmpty Phase = iota
	// PhaseEditing has at least one field changed.
	PhaseEditing
	// PhaseSubmitting has a save in flight.
	PhaseSubmitting
	// PhaseSucceeded finished saving.
	PhaseSucceeded
	// PhaseFailed had a save rejected; edits are preserved.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ErrSubmitInFlight means Submit was called while a previous Submit was
// still running.
var ErrSubmitInFlight = errors.New("form: submit already in progress")

// Field validation messages.
const (
	MsgTitleRequired   = "Title is required"
	MsgContentTooShort = "Content must be at least 100 characters"
	MsgInvalidCategory = "Select a valid category"
)

// StagedFile is a file selected in the form but not yet persisted.
type StagedFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// PreviewURI renders the staged bytes as a data URI for inline preview.
func (f *StagedFile) PreviewURI() string {
	return "data:" + f.MimeType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// MediaSlot tracks one media attachment (image or video) through edits.
// At most one of Staged and CurrentURL is effective: staging a file
// supersedes the stored URL, and removal tombstones both.
type MediaSlot struct {
	Kind       string
	CurrentURL string
	Staged     *StagedFile
	Removed    bool
	Error      string
}

// PreviewURL is what the form should display for this slot: the staged
// preview if a file is selected, the stored URL otherwise, nothing once
// removed.
func (s MediaSlot) PreviewURL() string {
	if s.Staged != nil {
		return s.Staged.PreviewURI()
	}
	if s.Removed {
		return ""
	}
	return s.CurrentURL
}

// Values are the scalar form fields.
type Values struct {
	Title    string
	Content  string
	Category string
}

// SubmitResult is what a Submitter reports back for a saved post.
type SubmitResult struct {
	ID   string
	Slug string
}

// Submitter persists a completed form. Implemented by the post
// repository; injected so the form stays free of storage concerns.
type Submitter interface {
	Submit(ctx context.Context, f *Form) (SubmitResult, error)
}

// Form is the post editor's state machine. All methods are safe for
// concurrent use.
type Form struct {
	mu sync.Mutex

	phase  Phase
	postID string // empty for create

	values Values
	image  MediaSlot
	video  MediaSlot

	fieldErrors map[string]string
	submitError string
}

// New returns an empty create form defaulting to the first category.
func New() *Form {
	return &Form{
		values:      Values{Category: model.DefaultCategory},
		image:       MediaSlot{Kind: model.MediaKindImage},
		video:       MediaSlot{Kind: model.MediaKindVideo},
		fieldErrors: make(map[string]string),
	}
}

// Hydrate loads an existing post into the form for editing and resets
// the phase to empty. Media slots point at the stored URLs.
func Hydrate(p *model.Post) *Form {
	f := New()
	f.postID = p.ID
	f.values = Values{
		Title:    p.Title,
		Content:  p.Content,
		Category: p.CategoryName(),
	}
	if p.ImageURL.Valid {
		f.image.CurrentURL = p.ImageURL.String
	}
	if p.VideoURL.Valid {
		f.video.CurrentURL = p.VideoURL.String
	}
	return f
}

// Phase reports the current lifecycle phase.
func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// PostID is the edited post's ID, empty on create.
func (f *Form) PostID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.postID
}

// Values returns a copy of the scalar fields.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Image returns a copy of the image slot.
func (f *Form) Image() MediaSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image
}

// Video returns a copy of the video slot.
func (f *Form) Video() MediaSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.video
}

// FieldError returns the validation message for a field, empty if none.
func (f *Form) FieldError(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldErrors[field]
}

// SubmitError returns the last save failure message, empty if none.
func (f *Form) SubmitError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitError
}

// SetTitle updates the title and clears its validation message.
func (f *Form) SetTitle(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.Title = v
	delete(f.fieldErrors, "title")
	f.markEditing()
}

// SetContent replaces the content and clears its validation message.
func (f *Form) SetContent(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.Content = v
	delete(f.fieldErrors, "content")
	f.markEditing()
}

// SetCategory selects a category. Unknown names are rejected inline and
// the previous selection stands.
func (f *Form) SetCategory(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !model.IsValidCategory(v) {
		f.fieldErrors["category"] = MsgInvalidCategory
		return
	}
	f.values.Category = v
	delete(f.fieldErrors, "category")
	f.markEditing()
}

// AppendImportedText appends converted document text to the content,
// separated by a blank line when content already exists.
func (f *Form) AppendImportedText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values.Content == "" {
		f.values.Content = text
	} else {
		f.values.Content += "\n\n" + text
	}
	delete(f.fieldErrors, "content")
	f.markEditing()
}

// SelectFile stages a file in the slot for the given kind. Rejected
// files leave the slot unchanged and record the message on the slot.
func (f *Form) SelectFile(kind string, sf StagedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot := f.slot(kind)
	if err := media.Validate(media.File{Size: sf.Size, MimeType: sf.MimeType}, kind); err != nil {
		var vErr *media.ValidationError
		if errors.As(err, &vErr) {
			slot.Error = vErr.Message
		}
		return err
	}

	slot.Staged = &sf
	slot.Removed = false
	slot.Error = ""
	f.markEditing()
	return nil
}

// RemoveFile clears the slot. A staged file is simply discarded; a
// stored URL is tombstoned so Submit deletes it from the post.
func (f *Form) RemoveFile(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot := f.slot(kind)
	slot.Staged = nil
	slot.Error = ""
	if slot.CurrentURL != "" {
		slot.Removed = true
	}
	f.markEditing()
}

// Validate checks the scalar fields and records messages per field.
// Media slots carry their own errors from SelectFile.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() bool {
	ok := true
	if strings.TrimSpace(f.values.Title) == "" {
		f.fieldErrors["title"] = MsgTitleRequired
		ok = false
	}
	if len(strings.TrimSpace(f.values.Content)) < model.MinContentLength {
		f.fieldErrors["content"] = MsgContentTooShort
		ok = false
	}
	if !model.IsValidCategory(f.values.Category) {
		f.fieldErrors["category"] = MsgInvalidCategory
		ok = false
	}
	return ok
}

// Submit validates and persists the form through the Submitter. Only
// one Submit runs at a time; a second call during the first returns
// ErrSubmitInFlight. On failure the form returns to an editable state
// with all values intact.
func (f *Form) Submit(ctx context.Context, s Submitter) (SubmitResult, error) {
	f.mu.Lock()
	if f.phase == PhaseSubmitting {
		f.mu.Unlock()
		return SubmitResult{}, ErrSubmitInFlight
	}
	if !f.validateLocked() {
		f.phase = PhaseFailed
		f.mu.Unlock()
		return SubmitResult{}, errors.New("form: validation failed")
	}
	f.phase = PhaseSubmitting
	f.submitError = ""
	f.mu.Unlock()

	res, err := s.Submit(ctx, f)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.phase = PhaseFailed
		f.submitError = err.Error()
		return SubmitResult{}, err
	}
	f.phase = PhaseSucceeded
	return res, nil
}

// slot must be called with f.mu held.
func (f *Form) slot(kind string) *MediaSlot {
	if kind == model.MediaKindVideo {
		return &f.video
	}
	return &f.image
}

// markEditing must be called with f.mu held. Failed forms return to
// editing on the next change so the user can retry.
func (f *Form) markEditing() {
	if f.phase == PhaseEmpty || f.phase == PhaseFailed {
		f.phase = PhaseEditing
	}
}
