// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package query

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/models"
)

// Catalog is the read slice of models.CatalogStore the resolver needs.
type Catalog interface {
	Search(ctx context.Context, query string) ([]*models.CatalogEntry, error)
	Get(ctx context.Context, groupID string) (*models.CatalogEntry, error)
}

// Suggester guesses the intended title behind a failed search. Optional.
type Suggester interface {
	SuggestTitle(ctx context.Context, failedQuery string) (string, error)
}

// OutcomeKind labels a resolution state.
type OutcomeKind string

const (
	OutcomeResolved       OutcomeKind = "resolved"
	OutcomeChooseLanguage OutcomeKind = "choose_language"
	OutcomeChooseQuality  OutcomeKind = "choose_quality"
)

// Choice is one mutually exclusive disambiguation option. Token re-enters
// the resolver via ResolveAction.
type Choice struct {
	Label string
	Token string
}

// Outcome is the resolution state for one matching catalog entry: either a
// terminal file or a set of choices that fix the next dimension.
type Outcome struct {
	Kind      OutcomeKind
	GroupID   string
	GroupName string
	Language  string
	Quality   string
	File      *models.FileRef
	Choices   []Choice
}

// Resolution is the result of resolving one normalized query. Empty
// Outcomes means no match even after the AI suggestion fallback.
type Resolution struct {
	Outcomes  []Outcome
	QueryUsed string
	Suggested bool
}

func (r *Resolution) NoMatch() bool {
	return len(r.Outcomes) == 0
}

// Resolver drives the disambiguation state machine over the catalog.
type Resolver struct {
	catalog   Catalog
	suggester Suggester
	logger    zerolog.Logger
}

func NewResolver(catalog Catalog, suggester Suggester, logger zerolog.Logger) *Resolver {
	return &Resolver{
		catalog:   catalog,
		suggester: suggester,
		logger:    logger.With().Str("service", "resolver").Logger(),
	}
}

// Resolve matches the residual phrase against the catalog and computes the
// resolution state per matching entry. On zero matches it retries once
// with an AI-suggested title before reporting no match.
func (r *Resolver) Resolve(ctx context.Context, norm *Normalized) (*Resolution, error) {
	matches, err := r.catalog.Search(ctx, norm.Residual)
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{QueryUsed: norm.Residual}

	if len(matches) == 0 && r.suggester != nil {
		suggestion, suggestErr := r.suggester.SuggestTitle(ctx, norm.Raw)
		if suggestErr != nil {
			r.logger.Warn().Err(suggestErr).Str("query", norm.Residual).Msg("title suggestion failed")
		} else if cleaned := cleanSuggestion(suggestion); cleaned != "" {
			matches, err = r.catalog.Search(ctx, cleaned)
			if err != nil {
				return nil, err
			}
			resolution.QueryUsed = cleaned
			resolution.Suggested = true
		}
	}

	for _, entry := range matches {
		if len(entry.Languages) == 0 {
			continue
		}
		resolution.Outcomes = append(resolution.Outcomes, r.resolveEntry(entry, norm.Language, norm.Quality))
	}

	return resolution, nil
}

// resolveEntry applies the disambiguation decision table to one entry.
// First applicable rule wins.
func (r *Resolver) resolveEntry(entry *models.CatalogEntry, language, quality string) Outcome {
	languages := entry.LanguageNames()

	if language != "" && quality != "" {
		if file, ok := entry.File(language, quality); ok {
			return resolved(entry, language, quality, file)
		}
		// Exact triple missing: fall back as if the absent dimension were
		// never given.
		if _, ok := entry.Languages[language]; ok {
			return r.qualityStep(entry, language)
		}
		language = ""
	}

	if language == "" && quality != "" {
		var offering []string
		for _, lang := range languages {
			if _, ok := entry.Languages[lang][quality]; ok {
				offering = append(offering, lang)
			}
		}
		switch len(offering) {
		case 1:
			file := entry.Languages[offering[0]][quality]
			return resolved(entry, offering[0], quality, file)
		case 0:
			// No language offers that quality; treat quality as unknown.
		default:
			return chooseLanguage(entry, offering)
		}
	}

	if language != "" {
		if _, ok := entry.Languages[language]; ok {
			return r.qualityStep(entry, language)
		}
		// Requested language not held; offer what exists.
		return chooseLanguage(entry, languages)
	}

	if len(languages) == 1 {
		return r.qualityStep(entry, languages[0])
	}
	return chooseLanguage(entry, languages)
}

// qualityStep runs with the language fixed: one quality auto-resolves,
// several become a choice.
func (r *Resolver) qualityStep(entry *models.CatalogEntry, language string) Outcome {
	qualities := entry.QualityLabels(language)
	if len(qualities) == 1 {
		file := entry.Languages[language][qualities[0]]
		return resolved(entry, language, qualities[0], file)
	}

	choices := make([]Choice, 0, len(qualities))
	for _, quality := range qualities {
		choices = append(choices, Choice{
			Label: quality,
			Token: EncodeQualityChoice(entry.GroupID, language, quality),
		})
	}

	return Outcome{
		Kind:      OutcomeChooseQuality,
		GroupID:   entry.GroupID,
		GroupName: entry.GroupName,
		Language:  language,
		Choices:   choices,
	}
}

// ResolveAction re-enters the state machine from a decoded callback token.
func (r *Resolver) ResolveAction(ctx context.Context, action *Action) (*Outcome, error) {
	entry, err := r.catalog.Get(ctx, action.GroupID)
	if err != nil {
		return nil, err
	}

	switch action.Kind {
	case ActionLanguageChoice:
		if _, ok := entry.Languages[action.Language]; !ok {
			return nil, models.ErrVariantNotFound
		}
		outcome := r.qualityStep(entry, action.Language)
		return &outcome, nil
	case ActionQualityChoice:
		file, ok := entry.File(action.Language, action.Quality)
		if !ok {
			return nil, models.ErrVariantNotFound
		}
		outcome := resolved(entry, action.Language, action.Quality, file)
		return &outcome, nil
	default:
		return nil, models.ErrVariantNotFound
	}
}

func resolved(entry *models.CatalogEntry, language, quality string, file models.FileRef) Outcome {
	return Outcome{
		Kind:      OutcomeResolved,
		GroupID:   entry.GroupID,
		GroupName: entry.GroupName,
		Language:  language,
		Quality:   quality,
		File:      &file,
	}
}

func chooseLanguage(entry *models.CatalogEntry, languages []string) Outcome {
	choices := make([]Choice, 0, len(languages))
	for _, language := range languages {
		choices = append(choices, Choice{
			Label: language,
			Token: EncodeLanguageChoice(entry.GroupID, language),
		})
	}

	return Outcome{
		Kind:      OutcomeChooseLanguage,
		GroupID:   entry.GroupID,
		GroupName: entry.GroupName,
		Choices:   choices,
	}
}

// cleanSuggestion strips quoting the model tends to wrap titles in.
func cleanSuggestion(suggestion string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '.':
			return -1
		}
		return r
	}, suggestion)
	return strings.ToLower(strings.TrimSpace(cleaned))
}
