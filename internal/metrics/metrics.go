// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the application's operational metrics.
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	postsCreated  prometheus.Counter
	postsUpdated  prometheus.Counter
	postsDeleted  prometheus.Counter
	mediaUploads  *prometheus.CounterVec
	mediaRejected prometheus.Counter
	docImports    *prometheus.CounterVec
	loginAttempts *prometheus.CounterVec
}

// NewCollector registers the metrics with reg and returns the
// collector.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffblog_http_requests_total",
			Help: "HTTP requests by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "staffblog_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffblog_posts_created_total",
			Help: "Posts created.",
		}),
		postsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffblog_posts_updated_total",
			Help: "Posts updated.",
		}),
		postsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffblog_posts_deleted_total",
			Help: "Posts deleted.",
		}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffblog_media_uploads_total",
			Help: "Accepted media uploads by kind.",
		}, []string{"kind"}),
		mediaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffblog_media_rejected_total",
			Help: "Media uploads rejected by validation.",
		}),
		docImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffblog_doc_imports_total",
			Help: "Document imports by outcome.",
		}, []string{"outcome"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffblog_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.postsCreated,
		c.postsUpdated,
		c.postsDeleted,
		c.mediaUploads,
		c.mediaRejected,
		c.docImports,
		c.loginAttempts,
	)
	return c
}

// RecordHTTPRequest counts one request and its latency.
func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordPostCreated() { c.postsCreated.Inc() }
func (c *Collector) RecordPostUpdated() { c.postsUpdated.Inc() }
func (c *Collector) RecordPostDeleted() { c.postsDeleted.Inc() }

// RecordMediaUpload counts an accepted upload of the given kind.
func (c *Collector) RecordMediaUpload(kind string) {
	c.mediaUploads.WithLabelValues(kind).Inc()
}

// RecordMediaRejected counts a validation rejection.
func (c *Collector) RecordMediaRejected() { c.mediaRejected.Inc() }

// RecordDocImport counts a document import: "success", "failure" or
// "busy".
func (c *Collector) RecordDocImport(outcome string) {
	c.docImports.WithLabelValues(outcome).Inc()
}

// RecordLoginAttempt counts a login: "success", "failure" or "locked".
func (c *Collector) RecordLoginAttempt(outcome string) {
	c.loginAttempts.WithLabelValues(outcome).Inc()
}

// Middleware counts every request and its latency.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.RecordHTTPRequest(sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
