// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autobrr/cinedex/internal/services/scrape"
)

// leaderboardSize caps the admin leaderboards.
const leaderboardSize = 20

// handleIndexCommand runs a full-channel scrape with a live status
// message. A concurrent scrape is rejected immediately.
func (s *Service) handleIndexCommand(ctx context.Context, chatID int64, args string) {
	chat := strings.TrimSpace(args)
	if chat == "" {
		s.reply(ctx, chatID, "Usage: /index [channel_link_or_id]")
		return
	}

	statusID, err := s.sender.SendMessage(ctx, chatID, fmt.Sprintf("Starting to scrape channel: %s. This may take a long time...", chat))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send scrape status message")
		return
	}
	s.logger.Info().Str("chat", chat).Msg("admin triggered /index")

	progress, err := s.scraper.Run(ctx, chat, func(p scrape.Progress) {
		if p.Done {
			return
		}
		text := fmt.Sprintf("Scraping...\nFiles Found: %d\nSuccessfully Indexed: %d\nFailed: %d", p.Total, p.Indexed, p.Failed)
		s.edit(ctx, chatID, statusID, text, nil)
	})
	if err != nil {
		if errors.Is(err, scrape.ErrScrapeBusy) {
			s.edit(ctx, chatID, statusID, "A scraping task is already in progress. Please wait.", nil)
			return
		}
		s.edit(ctx, chatID, statusID, fmt.Sprintf("An error occurred during scraping: %v\nIndexed so far: %d of %d found.", err, progress.Indexed, progress.Total), nil)
		return
	}

	s.edit(ctx, chatID, statusID, scrapeReport(progress), nil)
}

func scrapeReport(p scrape.Progress) string {
	var b strings.Builder
	b.WriteString("Scraping Complete!\n\n")
	fmt.Fprintf(&b, "Total Messages Found: %d\n", p.Total)
	fmt.Fprintf(&b, "Successfully Indexed: %d files\n", p.Indexed)
	fmt.Fprintf(&b, "Failed: %d files\n", p.Failed)

	if len(p.NewGroups) > 0 {
		fmt.Fprintf(&b, "\nNew Groups Added: %d\n- ", len(p.NewGroups))
		shown := p.NewGroups
		if len(shown) > leaderboardSize {
			shown = shown[:leaderboardSize]
		}
		b.WriteString(strings.Join(shown, "\n- "))
		if extra := len(p.NewGroups) - leaderboardSize; extra > 0 {
			fmt.Fprintf(&b, "\n...and %d more.", extra)
		}
	}

	return b.String()
}

func (s *Service) handleRequestsCommand(ctx context.Context, chatID int64) {
	top, err := s.demand.TopRequests(ctx, leaderboardSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load requests")
		s.reply(ctx, chatID, "Sorry, something went wrong.")
		return
	}
	if len(top) == 0 {
		s.reply(ctx, chatID, "The request list is currently empty.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Movie Requests:\n\n", leaderboardSize)
	for i, item := range top {
		fmt.Fprintf(&b, "%d. %s (%d requests)\n", i+1, item.Title, item.Count)
	}
	s.reply(ctx, chatID, b.String())
}

func (s *Service) handleClearRequestsCommand(ctx context.Context, chatID int64) {
	if err := s.demand.ClearRequests(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear requests")
		s.reply(ctx, chatID, "Sorry, something went wrong.")
		return
	}
	s.reply(ctx, chatID, "The movie request list has been cleared.")
}

func (s *Service) handleClearPopularityCommand(ctx context.Context, chatID int64) {
	if err := s.demand.ClearPopularity(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear popularity")
		s.reply(ctx, chatID, "Sorry, something went wrong.")
		return
	}
	s.reply(ctx, chatID, "The popularity counters have been cleared.")
}

func (s *Service) handlePopularityCommand(ctx context.Context, chatID int64) {
	top, err := s.demand.TopPopularity(ctx, leaderboardSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load popularity")
		s.reply(ctx, chatID, "Sorry, something went wrong.")
		return
	}
	if len(top) == 0 {
		s.reply(ctx, chatID, "No popularity data recorded yet.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Most Popular Files:\n\n", leaderboardSize)
	for i, item := range top {
		fmt.Fprintf(&b, "%d. %s (%s / %s) - %d Clicks\n", i+1, item.GroupName, item.Language, item.Quality, item.Count)
	}
	s.reply(ctx, chatID, b.String())
}

func (s *Service) handleBroadcastCommand(ctx context.Context, chatID int64, args string) {
	title := strings.ToLower(strings.TrimSpace(args))
	if title == "" {
		s.reply(ctx, chatID, "Usage: /broadcast [Movie Title]")
		return
	}

	report, err := s.demand.Broadcast(ctx, title)
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf("Error: could not broadcast '%s': %v", title, err))
		return
	}

	s.reply(ctx, chatID, fmt.Sprintf("Broadcast complete!\nMessage sent to %d / %d users.\nRequest for '%s' has been cleared.", report.Sent, report.Recipients, title))
}

func (s *Service) handleAdminCommand(ctx context.Context, chatID int64) {
	if s.cfg.DashboardURL == "" {
		s.reply(ctx, chatID, "Admin Error: dashboardUrl is not set.")
		return
	}
	s.reply(ctx, chatID, fmt.Sprintf("Welcome, Admin. Here is your dashboard link:\n%s", s.cfg.DashboardURL))
}
