// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/staffblog/internal/auth"
)

// Seed makes sure the shared admin account exists with the configured
// credential. An existing account gets its password rotated when the
// configured one no longer matches, so the credential in the
// environment is always the one that works.
func Seed(ctx context.Context, db *sql.DB, email, password, name string) error {
	queries := New(db)
	now := time.Now()

	user, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		ok, err := auth.CheckPassword(password, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("checking admin password: %w", err)
		}
		if ok && !auth.NeedsRehash(user.PasswordHash) {
			return nil
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		if err := queries.UpdateUserPassword(ctx, UpdateUserPasswordParams{
			ID:           user.ID,
			PasswordHash: hash,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("rotating admin password: %w", err)
		}
		slog.Info("rotated admin credential", "email", email)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	user, err = queries.CreateUser(ctx, CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created admin user", "id", user.ID, "email", user.Email)
	return nil
}
