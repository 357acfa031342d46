// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types persisted by the store.
package model

import (
	"database/sql"
	"time"
)

// User is an admin account. The application has a single shared admin
// credential; the table exists so the credential is a real session-backed
// principal rather than a client-trust flag.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  sql.NullTime
}
