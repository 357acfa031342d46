// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegiv/staffblog/internal/docimport"
	"github.com/olegiv/staffblog/internal/metrics"
	"github.com/olegiv/staffblog/internal/middleware"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/post"
)

// newAdminRouter wires the admin routes behind an injected user, the
// way LoadUser does in production.
func newAdminRouter(env *testEnv, h *AdminHandler, user model.User) http.Handler {
	r := chi.NewRouter()
	r.Use(env.sm.LoadAndSave)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.ContextKeyUser, user)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get(RouteRoot, h.List)
	r.Get(RouteAdminCreate, h.NewForm)
	r.Post(RouteAdminCreate, h.Create)
	r.Get(RouteAdminEdit, h.EditForm)
	r.Post(RouteAdminEdit, h.Update)
	r.Post(RouteAdminDelete, h.Delete)
	r.Post(RouteAdminImport, h.ImportDoc)
	return r
}

func newAdminHandler(t *testing.T, env *testEnv, converter *docimport.Converter) *AdminHandler {
	t.Helper()
	mc := metrics.NewCollector(prometheus.NewRegistry())
	return NewAdminHandler(env.repo, env.renderer, converter, mc)
}

// multipartBody builds a multipart form with the given fields and
// files. Each file entry maps a field name to filename, content type
// and payload.
type uploadFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files []uploadFile) (*bytes.Buffer, string) {
	t.Helper()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing field %s: %v", k, err)
		}
	}
	for _, f := range files {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.name + `"`}
		hdr["Content-Type"] = []string{f.contentType}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("creating part %s: %v", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("writing part %s: %v", f.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

const validContent = "The west wing elevators will be out of service on Tuesday morning for a scheduled inspection and repair visit."

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, map[string]string{
		"title":    "Elevator Maintenance",
		"content":  validContent,
		"category": "Maintenance",
	}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminCreate, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303, body: %s", w.Code, w.Body.String())
	}

	p, err := env.repo.GetBySlug(context.Background(), "elevator-maintenance")
	if err != nil {
		t.Fatalf("created post not found: %v", err)
	}
	if !p.Published {
		t.Error("new post should be published")
	}
	if p.CategoryName() != "Maintenance" {
		t.Errorf("category = %q", p.CategoryName())
	}
	if !p.AuthorID.Valid {
		t.Error("author not recorded")
	}
}

func TestCreatePostValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, map[string]string{
		"title":   "",
		"content": "too short",
	}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminCreate, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Title is required") {
		t.Errorf("missing title error in body: %q", w.Body.String())
	}
}

func TestCreatePostWithImage(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, map[string]string{
		"title":    "Pool Reopening",
		"content":  validContent,
		"category": "Service",
	}, []uploadFile{
		{field: "image", name: "pool.png", contentType: "image/png", data: pngBytes(t)},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminCreate, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303, body: %s", w.Code, w.Body.String())
	}

	p, err := env.repo.GetBySlug(context.Background(), "pool-reopening")
	if err != nil {
		t.Fatalf("created post not found: %v", err)
	}
	if !p.ImageURL.Valid || !strings.Contains(p.ImageURL.String, "images/") {
		t.Errorf("image URL = %+v", p.ImageURL)
	}
}

func TestCreatePostRejectsBadUploadType(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, map[string]string{
		"title":    "Broken Upload",
		"content":  validContent,
		"category": "Service",
	}, []uploadFile{
		{field: "image", name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminCreate, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	// Rejected upload does not block the save; the slot just stays empty.
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	p, err := env.repo.GetBySlug(context.Background(), "broken-upload")
	if err != nil {
		t.Fatalf("post not found: %v", err)
	}
	if p.ImageURL.Valid {
		t.Errorf("rejected upload stored anyway: %+v", p.ImageURL)
	}
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	existing := env.createTestPost(t, "p1", "Old Title", "old-title", "HR", true)
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, map[string]string{
		"title":    "New Title",
		"content":  validContent,
		"category": "HR",
	}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/edit/"+existing.ID, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303, body: %s", w.Code, w.Body.String())
	}

	p, err := env.repo.GetByID(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Title != "New Title" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Slug != "new-title" {
		t.Errorf("slug = %q, want regenerated from new title", p.Slug)
	}
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	existing := env.createTestPost(t, "p1", "Doomed", "doomed", "HR", true)
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/delete/"+existing.ID, nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if _, err := env.repo.GetByID(context.Background(), existing.ID); !errors.Is(err, post.ErrNotFound) {
		t.Errorf("post still present after delete: %v", err)
	}
}

func TestDeleteMissingPost(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/delete/nope", nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 with flash", w.Code)
	}
}

func TestImportDoc(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"Converted paragraph one.\n\nConverted paragraph two."}`)
	}))
	defer srv.Close()

	converter := docimport.NewConverter(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newAdminHandler(t, env, converter)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, nil, []uploadFile{
		{field: "document", name: "minutes.docx", contentType: docimport.MimeTypeDocx, data: []byte("fake docx")},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminImport, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var resp importResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(resp.Text, "Converted paragraph one.") {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestImportDocWrongType(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")

	converter := docimport.NewConverter("http://localhost:1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newAdminHandler(t, env, converter)
	router := newAdminRouter(env, h, user)

	body, contentType := multipartBody(t, nil, []uploadFile{
		{field: "document", name: "notes.txt", contentType: "text/plain", data: []byte("plain text")},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", RouteAdminImport, body)
	r.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415, body: %s", w.Code, w.Body.String())
	}
}

func TestAdminList(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	env.createTestPost(t, "p1", "Visible Draft", "visible-draft", "HR", false)
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", RouteRoot, nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "[Visible Draft]") {
		t.Errorf("draft missing from admin list: %q", w.Body.String())
	}
}

func TestAdminListSearchFilter(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	env.createTestPost(t, "p1", "Pool Closure", "pool-closure", "Maintenance", true)
	env.createTestPost(t, "p2", "Welcome Aboard", "welcome-aboard", "HR", true)
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/?q=POOL", nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "[Pool Closure]") {
		t.Errorf("search match missing: %q", body)
	}
	if strings.Contains(body, "[Welcome Aboard]") {
		t.Errorf("non-matching post shown: %q", body)
	}
}

func TestAdminListCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "admin@example.com", "Sup3r-secret-pass")
	env.createTestPost(t, "p1", "Pool Closure", "pool-closure", "Maintenance", true)
	env.createTestPost(t, "p2", "Welcome Aboard", "welcome-aboard", "HR", true)
	h := newAdminHandler(t, env, nil)
	router := newAdminRouter(env, h, user)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/?category=HR", nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "[Welcome Aboard]") {
		t.Errorf("category match missing: %q", body)
	}
	if strings.Contains(body, "[Pool Closure]") {
		t.Errorf("other-category post shown: %q", body)
	}
}

func TestDistinctCategories(t *testing.T) {
	posts := []model.Post{
		{Category: sql.NullString{String: "Valet", Valid: true}},
		{Category: sql.NullString{String: "HR", Valid: true}},
		{Category: sql.NullString{String: "Valet", Valid: true}},
		{Category: sql.NullString{}},
	}
	got := distinctCategories(posts)
	want := []string{"HR", "Valet"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("distinctCategories() = %v, want %v", got, want)
	}
}
