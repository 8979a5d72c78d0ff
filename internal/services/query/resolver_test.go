// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cinedex/internal/models"
)

type fakeCatalog struct {
	entries map[string]*models.CatalogEntry
}

func (c *fakeCatalog) Search(_ context.Context, query string) ([]*models.CatalogEntry, error) {
	var matches []*models.CatalogEntry
	for _, entry := range c.entries {
		if strings.Contains(entry.SearchText, query) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func (c *fakeCatalog) Get(_ context.Context, groupID string) (*models.CatalogEntry, error) {
	entry, ok := c.entries[groupID]
	if !ok {
		return nil, models.ErrGroupNotFound
	}
	return entry, nil
}

type fakeSuggester struct {
	suggestion string
	err        error
	calls      int
}

func (s *fakeSuggester) SuggestTitle(context.Context, string) (string, error) {
	s.calls++
	return s.suggestion, s.err
}

func entryWith(groupID, groupName string, languages map[string]map[string]models.FileRef) *models.CatalogEntry {
	return &models.CatalogEntry{
		GroupID:    groupID,
		GroupName:  groupName,
		SearchText: strings.ToLower(groupName),
		Languages:  languages,
	}
}

func jawanEntry() *models.CatalogEntry {
	return entryWith("jawan", "Jawan", map[string]map[string]models.FileRef{
		"Hindi": {
			"1080p": {FileID: "f1", FileName: "jawan-hi-1080.mkv"},
			"720p":  {FileID: "f2", FileName: "jawan-hi-720.mkv"},
		},
		"Tamil": {
			"1080p": {FileID: "f3", FileName: "jawan-ta-1080.mkv"},
		},
	})
}

func newTestResolver(entries ...*models.CatalogEntry) (*Resolver, *fakeSuggester) {
	catalog := &fakeCatalog{entries: map[string]*models.CatalogEntry{}}
	for _, entry := range entries {
		catalog.entries[entry.GroupID] = entry
	}
	suggester := &fakeSuggester{}
	return NewResolver(catalog, suggester, zerolog.Nop()), suggester
}

func mustNormalize(t *testing.T, input string) *Normalized {
	t.Helper()
	norm, err := Normalize(input)
	require.NoError(t, err)
	return norm
}

func TestResolveExactTriple(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan hindi 1080"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	assert.Equal(t, "Hindi", outcome.Language)
	assert.Equal(t, "1080p", outcome.Quality)
	require.NotNil(t, outcome.File)
	assert.Equal(t, "f1", outcome.File.FileID)
}

func TestResolveNoTagsOffersLanguages(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeChooseLanguage, outcome.Kind)

	labels := make([]string, 0, len(outcome.Choices))
	for _, choice := range outcome.Choices {
		labels = append(labels, choice.Label)
	}
	assert.Equal(t, []string{"Hindi", "Tamil"}, labels)

	// Each choice token must round-trip through the action decoder.
	for _, choice := range outcome.Choices {
		action, err := ParseAction(choice.Token)
		require.NoError(t, err)
		assert.Equal(t, ActionLanguageChoice, action.Kind)
		assert.Equal(t, "jawan", action.GroupID)
	}
}

func TestResolveLanguageOnlyOffersQualities(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan hindi"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeChooseQuality, outcome.Kind)
	assert.Equal(t, "Hindi", outcome.Language)
	require.Len(t, outcome.Choices, 2)
	assert.Equal(t, "1080p", outcome.Choices[0].Label)
	assert.Equal(t, "720p", outcome.Choices[1].Label)
}

func TestResolveLanguageWithSingleQualityAutoResolves(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan tamil"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	assert.Equal(t, "Tamil", outcome.Language)
	assert.Equal(t, "1080p", outcome.Quality)
	require.NotNil(t, outcome.File)
	assert.Equal(t, "f3", outcome.File.FileID)
}

func TestResolveQualityOnlySingleLanguageAutoResolves(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	// Only Hindi holds 720p, so language disambiguation is skipped.
	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan 720"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	assert.Equal(t, "Hindi", outcome.Language)
	assert.Equal(t, "720p", outcome.Quality)
}

func TestResolveQualityOnlyMultipleLanguagesOffersThem(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan 1080"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeChooseLanguage, outcome.Kind)
	require.Len(t, outcome.Choices, 2)
}

func TestResolveQualityHeldByNoLanguageFallsBack(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	// Nobody has 4K; the quality tag is dropped and the normal language
	// step runs.
	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan 4k"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)
	assert.Equal(t, OutcomeChooseLanguage, resolution.Outcomes[0].Kind)
}

func TestResolveMissingTripleFallsBackToQualityStep(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	// Tamil exists but not in 720p: the language is kept and the existing
	// qualities are offered (here a single one, so it auto-resolves).
	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan tamil 720"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	assert.Equal(t, "Tamil", outcome.Language)
	assert.Equal(t, "1080p", outcome.Quality)
}

func TestResolveUnknownLanguageOffersWhatExists(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawan telugu"))
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 1)

	outcome := resolution.Outcomes[0]
	assert.Equal(t, OutcomeChooseLanguage, outcome.Kind)
	require.Len(t, outcome.Choices, 2)
}

func TestResolveSuggestionFallback(t *testing.T) {
	t.Parallel()
	resolver, suggester := newTestResolver(jawanEntry())
	suggester.suggestion = `"Jawan."`

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "jawaan"))
	require.NoError(t, err)
	assert.Equal(t, 1, suggester.calls)
	assert.True(t, resolution.Suggested)
	assert.Equal(t, "jawan", resolution.QueryUsed)
	require.Len(t, resolution.Outcomes, 1)
}

func TestResolveNoMatchAfterSuggestion(t *testing.T) {
	t.Parallel()
	resolver, suggester := newTestResolver(jawanEntry())
	suggester.suggestion = "Something Else"

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "qqqq"))
	require.NoError(t, err)
	assert.True(t, resolution.NoMatch())
	assert.True(t, resolution.Suggested)
	assert.Equal(t, "something else", resolution.QueryUsed)
}

func TestResolveSuggestionErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	resolver, suggester := newTestResolver(jawanEntry())
	suggester.err = errors.New("model unavailable")

	resolution, err := resolver.Resolve(context.Background(), mustNormalize(t, "qqqq"))
	require.NoError(t, err)
	assert.True(t, resolution.NoMatch())
	assert.False(t, resolution.Suggested)
	assert.Equal(t, "qqqq", resolution.QueryUsed)
}

func TestResolveActionLanguageChoice(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	outcome, err := resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionLanguageChoice, GroupID: "jawan", Language: "Hindi",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeChooseQuality, outcome.Kind)
	require.Len(t, outcome.Choices, 2)

	outcome, err = resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionLanguageChoice, GroupID: "jawan", Language: "Tamil",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	assert.Equal(t, "1080p", outcome.Quality)
}

func TestResolveActionQualityChoice(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	outcome, err := resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionQualityChoice, GroupID: "jawan", Language: "Hindi", Quality: "720p",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome.Kind)
	require.NotNil(t, outcome.File)
	assert.Equal(t, "f2", outcome.File.FileID)
}

func TestResolveActionStaleEntry(t *testing.T) {
	t.Parallel()
	resolver, _ := newTestResolver(jawanEntry())

	_, err := resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionLanguageChoice, GroupID: "gone", Language: "Hindi",
	})
	assert.ErrorIs(t, err, models.ErrGroupNotFound)

	_, err = resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionLanguageChoice, GroupID: "jawan", Language: "Telugu",
	})
	assert.ErrorIs(t, err, models.ErrVariantNotFound)

	_, err = resolver.ResolveAction(context.Background(), &Action{
		Kind: ActionQualityChoice, GroupID: "jawan", Language: "Hindi", Quality: "4K",
	})
	assert.ErrorIs(t, err, models.ErrVariantNotFound)
}
