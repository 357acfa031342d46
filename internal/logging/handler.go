// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that tees WARN and above
// into the events table for the audit trail.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/store"
)

// EventLogHandler wraps another handler and also records WARN and
// ERROR logs as events.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
}

// NewEventLogHandler wraps inner; records at WARN and above go to the
// events table as well.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.writeEvent(r)
	}
	return nil
}

func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{inner: h.inner.WithAttrs(attrs), queries: h.queries, level: h.level}
}

func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{inner: h.inner.WithGroup(name), queries: h.queries, level: h.level}
}

// writeEvent stores the record as an event. A background context is
// used so a cancelled request cannot lose the audit entry.
func (h *EventLogHandler) writeEvent(r slog.Record) {
	_ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  eventCategory(r),
		Message:   r.Message,
		Metadata:  metadataJSON(r),
		CreatedAt: r.Time,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// eventCategory uses an explicit "category" attribute when present,
// otherwise guesses from the message.
func eventCategory(r slog.Record) string {
	var category string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})
	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "auth"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "post") || strings.Contains(msg, "slug"):
		return model.EventCategoryPost
	case strings.Contains(msg, "media") || strings.Contains(msg, "upload") || strings.Contains(msg, "image") || strings.Contains(msg, "video"):
		return model.EventCategoryMedia
	default:
		return model.EventCategorySystem
	}
}

func metadataJSON(r slog.Record) string {
	if r.NumAttrs() == 0 {
		return "{}"
	}
	attrs := make(map[string]string, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "category" {
			attrs[a.Key] = a.Value.String()
		}
		return true
	})
	data, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(data)
}
