// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/staffblog/internal/auth"
	"github.com/olegiv/staffblog/internal/metrics"
	"github.com/olegiv/staffblog/internal/middleware"
	"github.com/olegiv/staffblog/internal/render"
	"github.com/olegiv/staffblog/internal/store"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	metrics         *metrics.Collector
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, mc *metrics.Collector) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
		metrics:         mc,
	}
}

// LoginForm renders the login page. Already-authenticated users are
// sent straight to the admin post list.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Sign In",
	}); err != nil {
		logAndInternalError(w, "rendering login", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectLogin, "Invalid form data")
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	}

	ip := clientIP(r)
	if h.loginProtection != nil && !h.loginProtection.CheckIPRateLimit(ip) {
		slog.Warn("login rate limit hit", "category", "auth", "ip", ip)
		h.metrics.RecordLoginAttempt("rate_limited")
		flashError(w, r, h.renderer, redirectLogin, "Too many requests. Try again shortly")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.Warn("login attempt on locked account", "category", "auth", "email", email, "ip", ip)
			h.metrics.RecordLoginAttempt("locked")
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Account temporarily locked. Try again in %s", formatDuration(remaining)))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Warn("login failed: user not found", "category", "auth", "email", email, "ip", ip)
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users to prevent enumeration
		h.recordFailure(w, r, email)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
		return
	}
	if !valid {
		slog.Warn("login failed: invalid password", "category", "auth", "email", email, "ip", ip)
		h.recordFailure(w, r, email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Re-hash if the stored hash uses outdated parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := h.queries.TouchUserLogin(r.Context(), user.ID, time.Now()); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	h.metrics.RecordLoginAttempt("success")

	flashSuccess(w, r, h.renderer, redirectAdmin, "Welcome back, "+user.Name)
}

// Logout destroys the session and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been signed out", "info")
}

// recordFailure counts a failed attempt and answers with a uniform
// message so callers cannot probe which emails exist.
func (h *AuthHandler) recordFailure(w http.ResponseWriter, r *http.Request, email string) {
	h.metrics.RecordLoginAttempt("failure")
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			slog.Warn("account locked after failed attempts", "category", "auth", "email", email)
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Account locked for %s", formatDuration(lockDuration)))
			return
		}
	}
	flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
