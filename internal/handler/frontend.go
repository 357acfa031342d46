// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/staffblog/internal/browse"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/post"
	"github.com/olegiv/staffblog/internal/render"
)

// FrontendHandler serves the public blog pages.
type FrontendHandler struct {
	repo     *post.Repository
	renderer *render.Renderer
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(repo *post.Repository, renderer *render.Renderer) *FrontendHandler {
	return &FrontendHandler{repo: repo, renderer: renderer}
}

// HomeData is the template payload for the post list page.
type HomeData struct {
	Posts      []model.Post
	Categories []browse.CategoryCount
	Query      string
	Category   string
	Filtered   bool
}

// Home renders the post list, optionally narrowed by a search query or
// a category. Search and category are mutually exclusive; a search
// request clears any category selection and vice versa.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	browser := browse.New(h.repo)
	if err := browser.Load(r.Context()); err != nil {
		logAndInternalError(w, "loading posts", "error", err)
		return
	}

	q := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	switch {
	case q != "":
		browser.SearchNow(q)
	case category != "":
		browser.SelectCategory(category)
	}

	data := HomeData{
		Posts:      browser.Visible(),
		Categories: browser.CategoryCounts(),
		Query:      browser.Query(),
		Category:   browser.Category(),
		Filtered:   browser.Mode() != browse.ModeAll,
	}

	if err := h.renderer.Render(w, r, "public/home", render.TemplateData{
		Title: "Staff Blog",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "rendering home", "error", err)
	}
}

// Post renders a single published post by slug.
func (h *FrontendHandler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	p, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		logAndInternalError(w, "loading post", "slug", slug, "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "public/post", render.TemplateData{
		Title: p.Title,
		Data:  p,
	}); err != nil {
		logAndInternalError(w, "rendering post", "slug", slug, "error", err)
	}
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.RenderStatus(w, r, "public/notfound", http.StatusNotFound, render.TemplateData{
		Title: "Not Found",
	}); err != nil {
		http.NotFound(w, r)
	}
}
