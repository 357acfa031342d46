// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, startTime: time.Now()}
}

// healthStatus is the health check response body.
type healthStatus struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{
		Status: "healthy",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	code := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}
