// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/store"
)

func testHandler(t *testing.T) (*slog.Logger, *store.Queries) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "staffblog-test-*.db")
	require.NoError(t, err)
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(db))

	inner := slog.NewTextHandler(io.Discard, nil)
	return slog.New(NewEventLogHandler(inner, db)), store.New(db)
}

func TestWarnAndErrorRecorded(t *testing.T) {
	log, q := testHandler(t)

	log.Info("just info, not recorded")
	log.Warn("media upload failed", "key", "images/1-a.png")
	log.Error("login rejected", "email", "x@y.z")

	events, err := q.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, model.EventLevelError, events[0].Level)
	assert.Equal(t, model.EventCategoryAuth, events[0].Category)
	assert.Equal(t, model.EventLevelWarning, events[1].Level)
	assert.Equal(t, model.EventCategoryMedia, events[1].Category)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[1].Metadata), &meta))
	assert.Equal(t, "images/1-a.png", meta["key"])
}

func TestExplicitCategoryWins(t *testing.T) {
	log, q := testHandler(t)

	log.Warn("something about login", "category", model.EventCategorySystem)

	events, err := q.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategorySystem, events[0].Category)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[0].Metadata), &meta))
	_, hasCategory := meta["category"]
	assert.False(t, hasCategory)
}

func TestUserIDNotSet(t *testing.T) {
	log, q := testHandler(t)
	log.Error("post save failed")

	events, err := q.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, sql.NullInt64{}, events[0].UserID)
}
