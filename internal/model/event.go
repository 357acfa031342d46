// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event log levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event log categories.
const (
	EventCategoryAuth   = "auth"
	EventCategoryPost   = "post"
	EventCategoryMedia  = "media"
	EventCategorySystem = "system"
)

// Event is a persisted audit/event-log entry. WARN and ERROR slog
// records are teed into this table alongside explicit auth events.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}
