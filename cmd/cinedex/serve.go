// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/cinedex/internal/api"
	"github.com/autobrr/cinedex/internal/api/handlers"
	"github.com/autobrr/cinedex/internal/bot"
	"github.com/autobrr/cinedex/internal/buildinfo"
	"github.com/autobrr/cinedex/internal/config"
	"github.com/autobrr/cinedex/internal/database"
	"github.com/autobrr/cinedex/internal/gemini"
	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/services/demand"
	"github.com/autobrr/cinedex/internal/services/indexer"
	"github.com/autobrr/cinedex/internal/services/query"
	"github.com/autobrr/cinedex/internal/services/scrape"
	"github.com/autobrr/cinedex/internal/transport/telegram"
)

func RunServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	appConfig, err := config.New(configPath, buildinfo.Version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := appConfig.Config

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info().
		Str("version", buildinfo.Version).
		Str("database", cfg.DatabasePath).
		Msg("starting cinedex")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	catalogStore := models.NewCatalogStore(db)
	requestStore := models.NewRequestStore(db)
	popularityStore := models.NewPopularityStore(db)

	geminiClient := gemini.NewClient(cfg.GeminiAPIKey,
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithLogger(logger),
	)

	tg := telegram.NewClient(cfg.TelegramBotToken, telegram.WithLogger(logger))
	bridge := telegram.NewHistoryBridge(cfg.HistoryBridgeURL, telegram.WithBridgeLogger(logger))

	indexerService := indexer.NewService(catalogStore, geminiClient, logger)
	resolver := query.NewResolver(catalogStore, geminiClient, logger)
	demandService := demand.NewService(requestStore, popularityStore, tg, logger)
	scraper := scrape.NewCoordinator(bridge, indexerService, logger)

	sourceChannelID := cfg.SourceChannelID
	if sourceChannelID == 0 {
		sourceChannelID = cfg.AdminChatID
	}

	botService := bot.NewService(
		bot.Config{
			AdminChatID:     cfg.AdminChatID,
			SourceChannelID: sourceChannelID,
			AdPageURL:       cfg.AdPageURL,
			DashboardURL:    cfg.DashboardURL,
		},
		indexerService,
		resolver,
		demandService,
		scraper,
		tg,
		tg,
		logger,
	)

	dashboard := handlers.NewDashboardHandler(demandService, catalogStore, cfg.APISecret)
	apiServer := api.NewServer(cfg.Host, cfg.Port, dashboard)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start()
	})

	g.Go(func() error {
		return tg.Poll(gctx, botService)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
