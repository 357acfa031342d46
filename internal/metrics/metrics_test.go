// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostCreated()
	c.RecordPostCreated()
	c.RecordPostDeleted()
	c.RecordMediaUpload("image")
	c.RecordMediaRejected()
	c.RecordDocImport("busy")
	c.RecordLoginAttempt("failure")
	c.RecordHTTPRequest(200, 5*time.Millisecond)

	body := scrape(t, reg)
	assert.Contains(t, body, `staffblog_posts_created_total 2`)
	assert.Contains(t, body, `staffblog_posts_deleted_total 1`)
	assert.Contains(t, body, `staffblog_media_uploads_total{kind="image"} 1`)
	assert.Contains(t, body, `staffblog_media_rejected_total 1`)
	assert.Contains(t, body, `staffblog_doc_imports_total{outcome="busy"} 1`)
	assert.Contains(t, body, `staffblog_login_attempts_total{outcome="failure"} 1`)
	assert.Contains(t, body, `staffblog_http_requests_total{status_code="200"} 1`)
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/", "/missing/x", "/missing/y"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, reg)
	assert.Contains(t, body, `staffblog_http_requests_total{status_code="200"} 1`)
	assert.Contains(t, body, `staffblog_http_requests_total{status_code="404"} 2`)
}
