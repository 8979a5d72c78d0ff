// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package demand records unmet searches and resolved-file popularity, and
// fans availability notices out to requesters.
package demand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/transport"
)

// broadcastInterval paces fan-out sends to respect transport rate limits.
const broadcastInterval = 100 * time.Millisecond

// Service tracks demand and popularity.
type Service struct {
	requests   *models.RequestStore
	popularity *models.PopularityStore
	sender     transport.Sender
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewService(requests *models.RequestStore, popularity *models.PopularityStore, sender transport.Sender, logger zerolog.Logger) *Service {
	return &Service{
		requests:   requests,
		popularity: popularity,
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Every(broadcastInterval), 1),
		logger:     logger.With().Str("service", "demand").Logger(),
	}
}

// RecordRequest adds a user to a title's request set. Returns false when
// the user already requested it.
func (s *Service) RecordRequest(ctx context.Context, title string, userID int64) (bool, error) {
	added, err := s.requests.Add(ctx, title, userID)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.Info().Str("title", title).Int64("userID", userID).Msg("new request recorded")
	}
	return added, nil
}

// RecordPopularity increments the click counter for a resolved variant.
func (s *Service) RecordPopularity(ctx context.Context, groupName, language, quality string) error {
	if err := s.popularity.Record(ctx, groupName, language, quality); err != nil {
		return err
	}
	s.logger.Info().
		Str("group", groupName).
		Str("lang", language).
		Str("quality", quality).
		Msg("popularity +1")
	return nil
}

// BroadcastReport tallies one availability broadcast.
type BroadcastReport struct {
	Title      string
	Recipients int
	Sent       int
	Failed     int
}

// Broadcast notifies every requester of a title that it is available, one
// send per rate-limiter tick. A failed send skips that recipient and
// continues. The title's request record is deleted afterwards regardless
// of partial delivery failures.
func (s *Service) Broadcast(ctx context.Context, title string) (*BroadcastReport, error) {
	users, err := s.requests.Users(ctx, title)
	if err != nil {
		if errors.Is(err, models.ErrRequestNotFound) {
			return nil, fmt.Errorf("no open request for %q: %w", title, err)
		}
		return nil, err
	}

	report := &BroadcastReport{Title: title, Recipients: len(users)}
	text := fmt.Sprintf("Good news! The movie you requested, '%s', is now available.\n\nSend '%s' to the bot to get your link!", title, title)

	for _, userID := range users {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if _, err := s.sender.SendMessage(ctx, userID, text); err != nil {
			report.Failed++
			s.logger.Warn().Err(err).Int64("userID", userID).Str("title", title).Msg("broadcast send failed")
			continue
		}
		report.Sent++
	}

	if err := s.requests.Remove(ctx, title); err != nil {
		return report, fmt.Errorf("clear request %q: %w", title, err)
	}

	s.logger.Info().
		Str("title", title).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("broadcast complete")

	return report, nil
}

// Dashboard aggregates the admin snapshot in one call.
type Dashboard struct {
	TopRequests   []models.RequestCount     `json:"topRequests"`
	TopPopular    []*models.PopularityEntry `json:"topPopular"`
	TotalRequests int                       `json:"totalRequests"`
	TotalClicks   int                       `json:"totalClicks"`
}

// Snapshot builds the read-only dashboard view: top-N requests by
// requester count, top-N popularity by clicks, and aggregate totals.
func (s *Service) Snapshot(ctx context.Context, n int) (*Dashboard, error) {
	topRequests, err := s.requests.Top(ctx, n)
	if err != nil {
		return nil, err
	}
	topPopular, err := s.popularity.Top(ctx, n)
	if err != nil {
		return nil, err
	}
	totalRequests, err := s.requests.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalClicks, err := s.popularity.TotalClicks(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TopRequests:   topRequests,
		TopPopular:    topPopular,
		TotalRequests: totalRequests,
		TotalClicks:   totalClicks,
	}, nil
}

// ClearRequests wipes the request list (admin action).
func (s *Service) ClearRequests(ctx context.Context) error {
	return s.requests.Clear(ctx)
}

// ClearPopularity wipes the click counters (admin action).
func (s *Service) ClearPopularity(ctx context.Context) error {
	return s.popularity.Clear(ctx)
}

// TopRequests exposes the request leaderboard for admin commands.
func (s *Service) TopRequests(ctx context.Context, n int) ([]models.RequestCount, error) {
	return s.requests.Top(ctx, n)
}

// TopPopularity exposes the click leaderboard for admin commands.
func (s *Service) TopPopularity(ctx context.Context, n int) ([]*models.PopularityEntry, error) {
	return s.popularity.Top(ctx, n)
}
