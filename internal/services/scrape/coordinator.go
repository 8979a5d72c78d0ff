// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scrape bulk-imports historical channel content under a single
// exclusivity lock.
package scrape

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/services/indexer"
	"github.com/autobrr/cinedex/internal/transport"
)

// ErrScrapeBusy rejects a scan while another one holds the lock. No
// queuing: the caller is told immediately.
var ErrScrapeBusy = errors.New("a scraping task is already in progress")

// progressInterval is how many processed files sit between progress
// reports.
const progressInterval = 50

// Ingester is satisfied by indexer.Service.
type Ingester interface {
	IngestFile(ctx context.Context, msg *transport.FileMessage) (*indexer.Outcome, error)
}

// Progress is a point-in-time view of a running or finished scan.
type Progress struct {
	Total      int
	Indexed    int
	Failed     int
	NewGroups  []string
	Done       bool
	RateLimits int
}

// ProgressFunc receives a progress snapshot every progressInterval files
// and once at the end.
type ProgressFunc func(Progress)

// Coordinator serializes full-channel scans. The lock is independent of
// the persistence lock and is held for the whole scan.
type Coordinator struct {
	source   transport.HistorySource
	ingester Ingester
	logger   zerolog.Logger

	mu sync.Mutex

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCoordinator(source transport.HistorySource, ingester Ingester, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		source:   source,
		ingester: ingester,
		logger:   logger.With().Str("service", "scrape").Logger(),
		sleep:    sleepCtx,
	}
}

// Run walks the chat's history and ingests every file message. A second
// concurrent call fails with ErrScrapeBusy. Rate-limit signals pause the
// scan for the mandated duration and resume with the next item. Any other
// iterator failure aborts and reports partial counters; already-ingested
// data stays.
func (c *Coordinator) Run(ctx context.Context, chat string, onProgress ProgressFunc) (Progress, error) {
	if !c.mu.TryLock() {
		return Progress{}, ErrScrapeBusy
	}
	defer c.mu.Unlock()

	c.logger.Info().Str("chat", chat).Msg("starting channel scrape")

	var progress Progress
	newGroups := map[string]struct{}{}

	iter, err := c.source.ChatHistory(ctx, chat)
	if err != nil {
		return progress, err
	}

	for {
		msg, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if rle, ok := transport.AsRateLimit(err); ok {
				progress.RateLimits++
				c.logger.Warn().Dur("retryAfter", rle.RetryAfter).Msg("rate limited, pausing scrape")
				if sleepErr := c.sleep(ctx, rle.RetryAfter); sleepErr != nil {
					return progress, sleepErr
				}
				continue
			}
			c.logger.Error().Err(err).Msg("scrape aborted")
			return progress, err
		}
		if msg == nil || msg.FileID == "" {
			continue
		}

		progress.Total++

		outcome, err := c.ingester.IngestFile(ctx, msg)
		if err != nil {
			progress.Failed++
		} else {
			progress.Indexed++
			if outcome.IsNewGroup {
				if _, seen := newGroups[outcome.GroupName]; !seen {
					newGroups[outcome.GroupName] = struct{}{}
					progress.NewGroups = append(progress.NewGroups, outcome.GroupName)
				}
			}
		}

		if onProgress != nil && progress.Total%progressInterval == 0 {
			onProgress(progress)
		}
	}

	progress.Done = true
	if onProgress != nil {
		onProgress(progress)
	}

	c.logger.Info().
		Int("total", progress.Total).
		Int("indexed", progress.Indexed).
		Int("failed", progress.Failed).
		Int("newGroups", len(progress.NewGroups)).
		Msg("channel scrape complete")

	return progress, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
