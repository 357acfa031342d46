// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"

	"github.com/olegiv/staffblog/internal/docimport"
	"github.com/olegiv/staffblog/internal/form"
	"github.com/olegiv/staffblog/internal/media"
	"github.com/olegiv/staffblog/internal/metrics"
	"github.com/olegiv/staffblog/internal/middleware"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/post"
	"github.com/olegiv/staffblog/internal/render"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
// Larger parts spill to temp files.
const maxUploadMemory = 4 << 20

// AdminHandler handles the post management routes.
type AdminHandler struct {
	repo      *post.Repository
	renderer  *render.Renderer
	converter *docimport.Converter
	metrics   *metrics.Collector
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(repo *post.Repository, renderer *render.Renderer, converter *docimport.Converter, mc *metrics.Collector) *AdminHandler {
	return &AdminHandler{
		repo:      repo,
		renderer:  renderer,
		converter: converter,
		metrics:   mc,
	}
}

// ListData is the template payload for the admin post list.
type ListData struct {
	Posts      []model.Post
	Query      string
	Category   string
	Categories []string
}

// List renders all posts, drafts included. Supports title/slug search
// and a category filter built from the categories actually in use.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.repo.List(r.Context())
	if err != nil {
		logAndInternalError(w, "listing posts", "error", err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	category := r.URL.Query().Get("category")

	categories := distinctCategories(posts)
	posts = filterPosts(posts, query, category)

	if err := h.renderer.Render(w, r, "admin/list", render.TemplateData{
		Title: "Posts",
		Data: ListData{
			Posts:      posts,
			Query:      query,
			Category:   category,
			Categories: categories,
		},
		IsAdmin: true,
	}); err != nil {
		logAndInternalError(w, "rendering post list", "error", err)
	}
}

// distinctCategories collects the categories in use, sorted. Legacy
// categories outside the authoritative list still show up here so their
// posts stay reachable.
func distinctCategories(posts []model.Post) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range posts {
		name := posts[i].CategoryName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func filterPosts(posts []model.Post, query, category string) []model.Post {
	if query == "" && category == "" {
		return posts
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := posts[:0:0]
	for i := range posts {
		p := posts[i]
		if category != "" && p.CategoryName() != category {
			continue
		}
		if q != "" &&
			!strings.Contains(fold.String(p.Title), q) &&
			!strings.Contains(fold.String(p.Slug), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FormData is the template payload for the post form page. Media
// previews are resolved here so templates only deal with plain URLs.
type FormData struct {
	PostID        string
	Values        form.Values
	ImagePreview  template.URL
	ImageError    string
	VideoPreview  template.URL
	VideoError    string
	TitleError    string
	ContentError  string
	CategoryError string
	SubmitError   string
	Categories    []string
}

func formData(f *form.Form) FormData {
	image := f.Image()
	video := f.Video()
	return FormData{
		PostID:        f.PostID(),
		Values:        f.Values(),
		ImagePreview:  template.URL(image.PreviewURL()),
		ImageError:    image.Error,
		VideoPreview:  template.URL(video.PreviewURL()),
		VideoError:    video.Error,
		TitleError:    f.FieldError("title"),
		ContentError:  f.FieldError("content"),
		CategoryError: f.FieldError("category"),
		SubmitError:   f.SubmitError(),
		Categories:    model.Categories,
	}
}

// NewForm renders an empty post form.
func (h *AdminHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, form.New(), http.StatusOK)
}

// EditForm renders the form hydrated from an existing post.
func (h *AdminHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			flashError(w, r, h.renderer, redirectAdmin, "Post not found")
			return
		}
		logAndInternalError(w, "loading post", "error", err)
		return
	}

	h.renderForm(w, r, form.Hydrate(&p), http.StatusOK)
}

// Create handles the new-post form submission.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, nil)
}

// Update handles the edit form submission.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			flashError(w, r, h.renderer, redirectAdmin, "Post not found")
			return
		}
		logAndInternalError(w, "loading post", "error", err)
		return
	}

	h.save(w, r, &p)
}

// save runs the shared create/edit path: populate the form from the
// request, stage uploads, then submit. Validation problems re-render
// the form with messages in place of a redirect.
func (h *AdminHandler) save(w http.ResponseWriter, r *http.Request, existing *model.Post) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		flashError(w, r, h.renderer, redirectAdmin, "Invalid form data")
		return
	}

	var f *form.Form
	if existing != nil {
		f = form.Hydrate(existing)
	} else {
		f = form.New()
	}

	f.SetTitle(r.FormValue("title"))
	f.SetContent(r.FormValue("content"))
	if category := r.FormValue("category"); category != "" {
		f.SetCategory(category)
	}

	if r.FormValue("remove_image") == "1" {
		f.RemoveFile(model.MediaKindImage)
	}
	if r.FormValue("remove_video") == "1" {
		f.RemoveFile(model.MediaKindVideo)
	}

	h.stageUpload(r, f, model.MediaKindImage, "image")
	h.stageUpload(r, f, model.MediaKindVideo, "video")

	userID := middleware.GetUserID(r)
	result, err := f.Submit(r.Context(), h.repo.SubmitterFor(strconv.FormatInt(userID, 10)))
	if err != nil {
		if f.Phase() == form.PhaseFailed && f.SubmitError() != "" {
			slog.Error("post save failed", "category", "post", "error", err, "user_id", userID)
		}
		h.renderForm(w, r, f, http.StatusUnprocessableEntity)
		return
	}

	if existing != nil {
		h.metrics.RecordPostUpdated()
		slog.Info("post updated", "category", "post", "post_id", result.ID, "user_id", userID)
		flashSuccess(w, r, h.renderer, redirectAdmin, "Post updated")
	} else {
		h.metrics.RecordPostCreated()
		slog.Info("post created", "category", "post", "post_id", result.ID, "slug", result.Slug, "user_id", userID)
		flashSuccess(w, r, h.renderer, redirectAdmin, "Post published")
	}
}

// stageUpload stages a multipart file into the form's media slot.
// Rejections are recorded on the slot and shown on re-render.
func (h *AdminHandler) stageUpload(r *http.Request, f *form.Form, kind, field string) {
	if r.MultipartForm == nil {
		return
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return
	}
	fh := headers[0]

	sf := form.StagedFile{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
	}
	// Oversize files are rejected on size alone, no need to read them.
	if fh.Size <= media.MaxFileSize {
		data, err := readUpload(fh)
		if err != nil {
			slog.Error("reading upload", "error", err, "field", field)
			return
		}
		sf.Data = data
	}

	if err := f.SelectFile(kind, sf); err != nil {
		h.metrics.RecordMediaRejected()
		slog.Warn("upload rejected", "category", "media", "kind", kind, "name", fh.Filename, "size", fh.Size)
		return
	}
	h.metrics.RecordMediaUpload(kind)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, media.MaxFileSize))
}

// Delete handles the post delete action.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			flashError(w, r, h.renderer, redirectAdmin, "Post not found")
			return
		}
		logAndInternalError(w, "deleting post", "post_id", id, "error", err)
		return
	}

	h.metrics.RecordPostDeleted()
	slog.Info("post deleted", "category", "post", "post_id", id, "user_id", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectAdmin, "Post deleted")
}

// importResponse is the JSON answer for document import requests. The
// form page inserts the text into the content field client-side.
type importResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportDoc converts an uploaded Word document to plain text.
func (h *AdminHandler) ImportDoc(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, importResponse{Error: "Invalid form data"})
		return
	}

	file, fh, err := r.FormFile("document")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, importResponse{Error: "No document uploaded"})
		return
	}
	defer file.Close()

	text, err := h.converter.Convert(r.Context(), fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, docimport.ErrImportBusy):
			h.metrics.RecordDocImport("busy")
			writeJSON(w, http.StatusConflict, importResponse{Error: "An import is already running. Try again in a moment"})
		case errors.Is(err, docimport.ErrInvalidType):
			h.metrics.RecordDocImport("rejected")
			writeJSON(w, http.StatusUnsupportedMediaType, importResponse{Error: "Only .docx documents can be imported"})
		case errors.Is(err, docimport.ErrEmptyDocument):
			h.metrics.RecordDocImport("empty")
			writeJSON(w, http.StatusUnprocessableEntity, importResponse{Error: "The document contains no text"})
		default:
			h.metrics.RecordDocImport("error")
			slog.Error("document import failed", "category", "media", "name", fh.Filename, "error", err)
			writeJSON(w, http.StatusBadGateway, importResponse{Error: "Conversion failed. Try again later"})
		}
		return
	}

	h.metrics.RecordDocImport("success")
	slog.Info("document imported", "category", "media", "name", fh.Filename, "chars", len(text))
	writeJSON(w, http.StatusOK, importResponse{Text: text})
}

func (h *AdminHandler) renderForm(w http.ResponseWriter, r *http.Request, f *form.Form, status int) {
	title := "New Post"
	if f.PostID() != "" {
		title = "Edit Post"
	}

	if err := h.renderer.RenderStatus(w, r, "admin/form", status, render.TemplateData{
		Title:   title,
		Data:    formData(f),
		IsAdmin: true,
	}); err != nil {
		logAndInternalError(w, "rendering post form", "error", err)
	}
}
