// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package bot wires the indexing, resolution, and demand services to the
// chat transport. The transport itself (long polling, webhooks) is a
// collaborator behind transport.Sender.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/services/demand"
	"github.com/autobrr/cinedex/internal/services/indexer"
	"github.com/autobrr/cinedex/internal/services/query"
	"github.com/autobrr/cinedex/internal/services/scrape"
	"github.com/autobrr/cinedex/internal/transport"
)

// Config is the slice of app configuration the handlers need.
type Config struct {
	AdminChatID     int64
	SourceChannelID int64
	AdPageURL       string
	DashboardURL    string
}

type Service struct {
	cfg      Config
	indexer  *indexer.Service
	resolver *query.Resolver
	demand   *demand.Service
	scraper  *scrape.Coordinator
	sender   transport.Sender
	links    transport.LinkResolver
	logger   zerolog.Logger
}

func NewService(
	cfg Config,
	idx *indexer.Service,
	resolver *query.Resolver,
	dem *demand.Service,
	scraper *scrape.Coordinator,
	sender transport.Sender,
	links transport.LinkResolver,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		indexer:  idx,
		resolver: resolver,
		demand:   dem,
		scraper:  scraper,
		sender:   sender,
		links:    links,
		logger:   logger.With().Str("service", "bot").Logger(),
	}
}

// HandleChannelFile indexes a new file posted to the source channel and
// acknowledges the result in the channel. Posts from any other channel
// the bot happens to be a member of are dropped.
func (s *Service) HandleChannelFile(ctx context.Context, msg *transport.FileMessage) {
	if msg.ChatID != s.cfg.SourceChannelID {
		s.logger.Debug().Int64("chatID", msg.ChatID).Str("fileName", msg.FileName).Msg("ignoring file from non-source channel")
		return
	}

	s.logger.Info().Int64("chatID", msg.ChatID).Str("fileName", msg.FileName).Msg("detected new file in channel")

	outcome, err := s.indexer.IngestFile(ctx, msg)
	if err != nil {
		s.reply(ctx, msg.ChatID, fmt.Sprintf("AI indexing failed for %q.", msg.FileName))
		return
	}

	s.reply(ctx, msg.ChatID, fmt.Sprintf("AI Indexed: %s (%s / %s)", outcome.GroupName, outcome.Language, outcome.Quality))
}

// HandleText routes a private text message: commands to the command
// handlers, everything else through the search flow. Plain text from the
// admin chat is ignored so admin chatter never triggers searches.
func (s *Service) HandleText(ctx context.Context, msg *transport.TextMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		s.handleCommand(ctx, msg, text)
		return
	}

	if msg.UserID == s.cfg.AdminChatID {
		return
	}

	s.handleSearch(ctx, msg)
}

func (s *Service) handleCommand(ctx context.Context, msg *transport.TextMessage, text string) {
	command, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	if command == "/myid" {
		s.reply(ctx, msg.ChatID, fmt.Sprintf("Your Chat ID is: %d", msg.ChatID))
		return
	}

	if msg.UserID != s.cfg.AdminChatID {
		return
	}

	switch command {
	case "/index":
		s.handleIndexCommand(ctx, msg.ChatID, args)
	case "/requests":
		s.handleRequestsCommand(ctx, msg.ChatID)
	case "/clearrequests":
		s.handleClearRequestsCommand(ctx, msg.ChatID)
	case "/popularity":
		s.handlePopularityCommand(ctx, msg.ChatID)
	case "/clearpopularity":
		s.handleClearPopularityCommand(ctx, msg.ChatID)
	case "/broadcast":
		s.handleBroadcastCommand(ctx, msg.ChatID, args)
	case "/admin":
		s.handleAdminCommand(ctx, msg.ChatID)
	}
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.sender.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Error().Err(err).Int64("chatID", chatID).Msg("failed to send message")
	}
}
