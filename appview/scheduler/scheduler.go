// Package scheduler runs the periodic unlock sweep. Sweeps are
// sequential at the top level; capsules within a sweep are processed
// with bounded concurrency. A capsule that fails stays locked and due,
// so the next sweep simply picks it up again — which also makes the
// whole thing trivially resumable after a crash.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"memorylane.app/core/appview/db"
	"memorylane.app/core/appview/unlock"
)

type Scheduler struct {
	Db     *db.DB
	Unlock *unlock.Service
	Logger *slog.Logger

	Interval     time.Duration
	SweepTimeout time.Duration
	Concurrency  int
}

const (
	defaultInterval     = time.Minute
	defaultSweepTimeout = 45 * time.Second
	defaultConcurrency  = 4
)

// Run sweeps until the context is cancelled. One sweep finishes (or
// hits its deadline) before the next begins.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Logger.Info("unlock scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("unlock scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.Logger.Error("sweep failed", "err", err)
			}
		}
	}
}

// Sweep queries for due capsules and drives each through the shared
// unlock transition. A failure on one capsule never aborts the rest;
// no capsule is retried within the same sweep. Capsules left over when
// the sweep deadline hits are safe to abandon because the transition
// is idempotent.
func (s *Scheduler) Sweep(ctx context.Context) error {
	timeout := s.SweepTimeout
	if timeout <= 0 {
		timeout = defaultSweepTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	due, err := db.ListDueForUnlock(s.Db, time.Now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	s.Logger.Info("found due capsules", "count", len(due))

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for _, capsule := range due {
		select {
		case <-ctx.Done():
			s.Logger.Warn("sweep deadline hit, leaving remaining capsules for next sweep")
			wg.Wait()
			return nil
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id, title string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.Unlock.Unlock(ctx, id)
			switch {
			case err != nil:
				s.Logger.Error("failed to unlock capsule", "capsule", id, "err", err)
			case res.AlreadyUnlocked:
				// lost the race to a manual trigger; nothing to do
			default:
				s.Logger.Info("unlocked capsule", "capsule", id, "title", title, "sent", res.Report.Sent)
			}
		}(capsule.Id, capsule.Title)
	}

	wg.Wait()
	return nil
}
