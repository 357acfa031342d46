// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/staffblog/internal/cache"
	"github.com/olegiv/staffblog/internal/middleware"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/post"
	"github.com/olegiv/staffblog/internal/render"
	"github.com/olegiv/staffblog/internal/storage"
	"github.com/olegiv/staffblog/internal/store"
)

// testEnv bundles the pieces most handler tests need.
type testEnv struct {
	db       *sql.DB
	queries  *store.Queries
	repo     *post.Repository
	renderer *render.Renderer
	sm       *scs.SessionManager
	backend  *storage.Local
}

// testTemplates returns a minimal template set covering every page the
// handlers render.
func testTemplates() fstest.MapFS {
	base := `{{define "base"}}{{template "content" .}}{{end}}`
	return fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{Data: []byte(base)},
		"public/home.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}home:{{range .Data.Posts}}[{{.Title}}]{{end}}{{end}}`),
		},
		"public/post.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}post:{{.Data.Title}}{{end}}`),
		},
		"public/notfound.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}not found{{end}}`),
		},
		"auth/login.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}login{{end}}`),
		},
		"admin/list.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}admin:{{range .Data.Posts}}[{{.Title}}]{{end}}{{end}}`),
		},
		"admin/form.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}form:{{.Data.TitleError}}:{{.Data.ContentError}}{{end}}`),
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := store.NewDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	backend, err := storage.NewLocal(filepath.Join(dir, "media"), "/media")
	if err != nil {
		t.Fatalf("creating media dir: %v", err)
	}

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { mem.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	queries := store.New(db)
	repo := post.NewRepository(queries, backend, cache.NewPostsCache(mem, time.Minute), log)

	sm := scs.New()

	renderer, err := render.New(render.Config{
		TemplatesFS:    testTemplates(),
		SessionManager: sm,
	})
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}

	return &testEnv{
		db:       db,
		queries:  queries,
		repo:     repo,
		renderer: renderer,
		sm:       sm,
		backend:  backend,
	}
}

// createTestPost inserts a post directly through the store.
func (e *testEnv) createTestPost(t *testing.T, id, title, slug, category string, published bool) model.Post {
	t.Helper()

	p, err := e.queries.CreatePost(context.Background(), store.CreatePostParams{
		ID:        id,
		Title:     title,
		Slug:      slug,
		Content:   "Content for " + title + ". It is long enough to pass validation checks twice over easily.",
		Category:  sql.NullString{String: category, Valid: category != ""},
		Published: published,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("creating test post: %v", err)
	}
	return p
}

// asUser injects an authenticated user into the request context the
// way the LoadUser middleware does.
func asUser(r *http.Request, user model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

// withSession wraps a handler in the session middleware so flash
// messages and session writes work inside tests.
func (e *testEnv) withSession(h http.Handler) http.Handler {
	return e.sm.LoadAndSave(h)
}

// newTestRouter wires the public routes the way main does, with the
// session middleware applied.
func newTestRouter(e *testEnv, h *FrontendHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(e.sm.LoadAndSave)
	r.Get(RouteRoot, h.Home)
	r.Get(RoutePostSlug, h.Post)
	r.NotFound(h.NotFound)
	return r
}
