// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{define "base"}}<html><body>{{template "content" .}}</body></html>{{end}}`),
		},
		"public/home.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}<h1>{{.Title}}</h1>{{end}}`),
		},
		"admin/list.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}<p>{{.Data}}</p>{{end}}`),
		},
	}
}

func TestRenderTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	if err := r.Render(w, req, "public/home", TemplateData{Title: "Staff Blog"}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<h1>Staff Blog</h1>") {
		t.Errorf("rendered body missing title, got %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	if err := r.Render(w, req, "public/missing", TemplateData{}); err == nil {
		t.Error("Render() with unknown template should fail")
	}
}

func TestRenderStatus(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/nope", nil)
	if err := r.RenderStatus(w, req, "public/home", 404, TemplateData{Title: "Not Found"}); err != nil {
		t.Fatalf("RenderStatus() error: %v", err)
	}
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "two paragraphs",
			input:    "first paragraph\n\nsecond paragraph",
			expected: []string{"first paragraph", "second paragraph"},
		},
		{
			name:     "blank paragraphs dropped",
			input:    "one\n\n\n\ntwo",
			expected: []string{"one", "two"},
		},
		{
			name:     "script stripped",
			input:    "hello <script>alert(1)</script>world",
			expected: []string{"hello world"},
		},
		{
			name:     "safe markup kept",
			input:    "see <em>this</em>",
			expected: []string{"see <em>this</em>"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paragraphs(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Paragraphs(%q) returned %d paragraphs, want %d", tt.input, len(got), len(tt.expected))
			}
			for i := range got {
				if string(got[i]) != tt.expected[i] {
					t.Errorf("paragraph %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestTemplateFuncsFormatDate(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()

	formatDate := funcs["formatDate"].(func(time.Time) string)
	testTime := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got := formatDate(testTime); got != "Mar 15, 2026" {
		t.Errorf("formatDate() = %q, want %q", got, "Mar 15, 2026")
	}
}

func TestTemplateFuncsTruncate(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()

	truncate := funcs["truncate"].(func(string, int) string)
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a longer string", 8); got != "a longer..." {
		t.Errorf("truncate(long) = %q", got)
	}
}
