// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/autobrr/cinedex/internal/services/query"
	"github.com/autobrr/cinedex/internal/transport"
)

// keyboardColumns caps choice buttons per row.
const keyboardColumns = 3

// handleSearch runs the full query flow: normalize, resolve, then either
// hand out a link, present choices, or offer to record a request.
func (s *Service) handleSearch(ctx context.Context, msg *transport.TextMessage) {
	norm, err := query.Normalize(msg.Text)
	if err != nil {
		if errors.Is(err, query.ErrQueryTooShort) {
			s.reply(ctx, msg.ChatID, "Search term must be 3+ chars.")
			return
		}
		s.logger.Error().Err(err).Msg("query normalization failed")
		return
	}

	resolution, err := s.resolver.Resolve(ctx, norm)
	if err != nil {
		s.logger.Error().Err(err).Str("query", norm.Residual).Msg("resolution failed")
		s.reply(ctx, msg.ChatID, "Sorry, something went wrong. Please try again.")
		return
	}

	if resolution.NoMatch() {
		s.offerRequest(ctx, msg.ChatID, resolution.QueryUsed)
		return
	}

	if resolution.Suggested {
		s.reply(ctx, msg.ChatID, fmt.Sprintf("Did you mean '%s'? Showing results:", resolution.QueryUsed))
	}

	for i := range resolution.Outcomes {
		s.presentOutcome(ctx, msg.ChatID, &resolution.Outcomes[i])
	}
}

// presentOutcome sends one entry's resolution state to the user.
func (s *Service) presentOutcome(ctx context.Context, chatID int64, outcome *query.Outcome) {
	switch outcome.Kind {
	case query.OutcomeResolved:
		s.reply(ctx, chatID, fmt.Sprintf("Found '%s (%s - %s)'! Generating your link...", outcome.GroupName, outcome.Language, outcome.Quality))
		s.sendDownloadLink(ctx, chatID, outcome)

	case query.OutcomeChooseLanguage:
		text := fmt.Sprintf("I found '%s'. Which language do you need?", outcome.GroupName)
		if _, err := s.sender.SendKeyboard(ctx, chatID, text, choiceKeyboard(outcome.Choices)); err != nil {
			s.logger.Error().Err(err).Int64("chatID", chatID).Msg("failed to send language keyboard")
		}

	case query.OutcomeChooseQuality:
		text := fmt.Sprintf("I found '%s (%s)'. Which quality do you need?", outcome.GroupName, outcome.Language)
		if _, err := s.sender.SendKeyboard(ctx, chatID, text, choiceKeyboard(outcome.Choices)); err != nil {
			s.logger.Error().Err(err).Int64("chatID", chatID).Msg("failed to send quality keyboard")
		}
	}
}

// offerRequest shows the demand-request button after both the search and
// the AI suggestion came up empty.
func (s *Service) offerRequest(ctx context.Context, chatID int64, title string) {
	keyboard := transport.Keyboard{{
		{Label: fmt.Sprintf("Yes, request %q", title), Data: query.EncodeRequestConfirm(title)},
	}}
	text := fmt.Sprintf("Sorry, I couldn't find any files for '%s'.\n\nWould you like me to add it to my request list?", title)
	if _, err := s.sender.SendKeyboard(ctx, chatID, text, keyboard); err != nil {
		s.logger.Error().Err(err).Int64("chatID", chatID).Msg("failed to send request offer")
	}
}

// sendDownloadLink resolves the file link, wraps it through the landing
// page, and records the click. Degrades to a notice when unconfigured.
func (s *Service) sendDownloadLink(ctx context.Context, chatID int64, outcome *query.Outcome) {
	if s.cfg.AdPageURL == "" {
		s.logger.Error().Msg("adPageUrl is not set")
		s.reply(ctx, chatID, "Bot is not configured. Admin needs to set the landing page URL.")
		return
	}

	link, err := s.links.DownloadLink(ctx, outcome.File.FileID)
	if err != nil {
		s.logger.Error().Err(err).Str("fileID", outcome.File.FileID).Msg("failed to get download link")
		s.reply(ctx, chatID, "Sorry, I couldn't generate the download link. This might be a temporary issue.")
		return
	}

	adLink := fmt.Sprintf("%s?dest=%s", s.cfg.AdPageURL, url.QueryEscape(link))
	s.reply(ctx, chatID, fmt.Sprintf("File: %s\nLink: %s", outcome.File.FileName, adLink))

	if err := s.demand.RecordPopularity(ctx, outcome.GroupName, outcome.Language, outcome.Quality); err != nil {
		s.logger.Error().Err(err).Str("group", outcome.GroupName).Msg("failed to record popularity")
	}
}

// choiceKeyboard lays choices out in rows of keyboardColumns buttons.
func choiceKeyboard(choices []query.Choice) transport.Keyboard {
	var keyboard transport.Keyboard
	var row []transport.Button
	for _, choice := range choices {
		row = append(row, transport.Button{Label: choice.Label, Data: choice.Token})
		if len(row) == keyboardColumns {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return keyboard
}
