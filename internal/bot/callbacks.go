// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bot

import (
	"context"
	"fmt"

	"github.com/autobrr/cinedex/internal/services/query"
	"github.com/autobrr/cinedex/internal/transport"
)

// HandleCallback decodes a button press and advances the disambiguation
// state machine or records a demand request.
func (s *Service) HandleCallback(ctx context.Context, cb *transport.Callback) {
	action, err := query.ParseAction(cb.Data)
	if err != nil {
		s.logger.Error().Err(err).Str("data", cb.Data).Msg("undecodable callback")
		s.answer(ctx, cb.ID, "")
		return
	}

	switch action.Kind {
	case query.ActionLanguageChoice:
		s.answer(ctx, cb.ID, "")
		s.handleLanguageChoice(ctx, cb, action)
	case query.ActionQualityChoice:
		s.answer(ctx, cb.ID, "")
		s.handleQualityChoice(ctx, cb, action)
	case query.ActionRequestConfirm:
		s.handleRequestConfirm(ctx, cb, action)
	}
}

// handleLanguageChoice fixes the language dimension: either the quality
// auto-resolves or the quality keyboard replaces the language keyboard.
func (s *Service) handleLanguageChoice(ctx context.Context, cb *transport.Callback, action *query.Action) {
	outcome, err := s.resolver.ResolveAction(ctx, action)
	if err != nil {
		s.logger.Error().Err(err).Str("groupID", action.GroupID).Msg("language choice failed")
		s.reply(ctx, cb.ChatID, "Sorry, something went wrong.")
		return
	}

	switch outcome.Kind {
	case query.OutcomeResolved:
		text := fmt.Sprintf("Found '%s (%s - %s)'! Generating your link...", outcome.GroupName, outcome.Language, outcome.Quality)
		s.edit(ctx, cb.ChatID, cb.MessageID, text, nil)
		s.sendDownloadLink(ctx, cb.ChatID, outcome)

	case query.OutcomeChooseQuality:
		text := fmt.Sprintf("You selected %s. Now, which quality do you need?", outcome.Language)
		s.edit(ctx, cb.ChatID, cb.MessageID, text, choiceKeyboard(outcome.Choices))
	}
}

// handleQualityChoice is the terminal transition: both dimensions fixed.
func (s *Service) handleQualityChoice(ctx context.Context, cb *transport.Callback, action *query.Action) {
	outcome, err := s.resolver.ResolveAction(ctx, action)
	if err != nil {
		s.logger.Error().Err(err).Str("groupID", action.GroupID).Msg("quality choice failed")
		s.reply(ctx, cb.ChatID, "Sorry, something went wrong.")
		return
	}

	text := fmt.Sprintf("Generating link for '%s (%s - %s)'...", outcome.GroupName, outcome.Language, outcome.Quality)
	s.edit(ctx, cb.ChatID, cb.MessageID, text, nil)
	s.sendDownloadLink(ctx, cb.ChatID, outcome)
}

// handleRequestConfirm records the demand request idempotently and tells
// the user whether it was new.
func (s *Service) handleRequestConfirm(ctx context.Context, cb *transport.Callback, action *query.Action) {
	added, err := s.demand.RecordRequest(ctx, action.Title, cb.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("title", action.Title).Msg("failed to record request")
		s.answer(ctx, cb.ID, "")
		s.reply(ctx, cb.ChatID, "Sorry, something went wrong.")
		return
	}

	if added {
		s.answer(ctx, cb.ID, "Request added!")
		s.edit(ctx, cb.ChatID, cb.MessageID, fmt.Sprintf("Great! I've added '%s' to the admin's request list. You will be notified when it's available.", action.Title), nil)
		return
	}

	s.answer(ctx, cb.ID, "You already requested this!")
	s.edit(ctx, cb.ChatID, cb.MessageID, fmt.Sprintf("You have already requested '%s'. I'll let you know!", action.Title), nil)
}

func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if err := s.sender.AnswerCallback(ctx, callbackID, text); err != nil {
		s.logger.Error().Err(err).Msg("failed to answer callback")
	}
}

func (s *Service) edit(ctx context.Context, chatID int64, messageID int, text string, keyboard transport.Keyboard) {
	if err := s.sender.EditMessage(ctx, chatID, messageID, text, keyboard); err != nil {
		s.logger.Error().Err(err).Int64("chatID", chatID).Int("messageID", messageID).Msg("failed to edit message")
	}
}
