// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package indexer turns channel file posts into catalog entries via AI
// extraction.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/gemini"
	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/transport"
)

// Extractor is satisfied by gemini.Client.
type Extractor interface {
	Extract(ctx context.Context, fileName string) (*gemini.Extraction, error)
}

// Catalog is the mutation slice of models.CatalogStore the indexer needs.
type Catalog interface {
	Ingest(ctx context.Context, groupName, language, quality string, file models.FileRef) (*models.IngestResult, error)
}

// Outcome reports one file's trip through extraction and ingest.
type Outcome struct {
	FileName   string
	GroupID    string
	GroupName  string
	Language   string
	Quality    string
	IsNewGroup bool
}

type Service struct {
	catalog   Catalog
	extractor Extractor
	logger    zerolog.Logger
}

func NewService(catalog Catalog, extractor Extractor, logger zerolog.Logger) *Service {
	return &Service{
		catalog:   catalog,
		extractor: extractor,
		logger:    logger.With().Str("service", "indexer").Logger(),
	}
}

// IngestFile extracts metadata from the filename and merges the file into
// the catalog. Extraction failure skips the file entirely; nothing is
// partially written.
func (s *Service) IngestFile(ctx context.Context, msg *transport.FileMessage) (*Outcome, error) {
	if msg == nil || msg.FileID == "" {
		return nil, errors.New("no file object")
	}

	fileName := msg.FileName
	if fileName == "" {
		fileName = "Untitled"
	}

	extraction, err := s.extractor.Extract(ctx, fileName)
	if err != nil {
		s.logger.Error().Err(err).Str("fileName", fileName).Msg("AI indexing failed")
		return nil, fmt.Errorf("extract %q: %w", fileName, err)
	}

	result, err := s.catalog.Ingest(ctx, extraction.GroupName, extraction.Language, extraction.Quality, models.FileRef{
		FileID:   msg.FileID,
		FileName: fileName,
		FileType: msg.FileType,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("fileName", fileName).
			Str("group", extraction.GroupName).
			Msg("failed to save indexed file")
		return nil, err
	}

	s.logger.Info().
		Str("group", result.GroupName).
		Str("lang", extraction.Language).
		Str("quality", extraction.Quality).
		Bool("newGroup", result.IsNewGroup).
		Msg("indexed file")

	return &Outcome{
		FileName:   fileName,
		GroupID:    result.GroupID,
		GroupName:  result.GroupName,
		Language:   extraction.Language,
		Quality:    extraction.Quality,
		IsNewGroup: result.IsNewGroup,
	}, nil
}
