// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/staffblog/internal/post"
	"github.com/olegiv/staffblog/internal/store"
)

// orphanMinAge protects media uploaded by an in-flight submit from
// the sweep.
const orphanMinAge = 24 * time.Hour

// eventRetention is how long audit events are kept.
const eventRetention = 90 * 24 * time.Hour

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron    *cron.Cron
	repo    *post.Repository
	queries *store.Queries
	log     *slog.Logger
}

// New creates the scheduler. Call Start to begin running jobs.
func New(repo *post.Repository, queries *store.Queries, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		repo:    repo,
		queries: queries,
		log:     log,
	}
}

// Start registers and starts the jobs.
func (s *Scheduler) Start() error {
	// Daily at 03:15: remove media objects no post references.
	if _, err := s.cron.AddFunc("15 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.repo.DeleteOrphanedMedia(ctx, orphanMinAge); err != nil {
			s.log.Error("orphaned media sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	// Daily at 03:45: trim old audit events.
	if _, err := s.cron.AddFunc("45 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := s.queries.DeleteEventsBefore(ctx, time.Now().Add(-eventRetention))
		if err != nil {
			s.log.Error("event retention cleanup failed", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("trimmed old events", "count", n)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started")
	return nil
}

// Stop stops the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
