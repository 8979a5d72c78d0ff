// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/autobrr/cinedex/internal/database"
)

const popularityDocument = "popularity"

// PopularityEntry counts download-link clicks for one exact variant.
type PopularityEntry struct {
	GroupName string `json:"groupName"`
	Language  string `json:"lang"`
	Quality   string `json:"quality"`
	Count     int    `json:"count"`
}

// PopularityStore tracks click-through counts keyed by a composite of
// group, language, and quality. Counts only increment; only an explicit
// admin clear resets them.
type PopularityStore struct {
	db *database.DB
}

func NewPopularityStore(db *database.DB) *PopularityStore {
	return &PopularityStore{db: db}
}

type popularityDoc map[string]*PopularityEntry

// Record increments the click count for a resolved variant, creating the
// entry on first click.
func (s *PopularityStore) Record(ctx context.Context, groupName, language, quality string) error {
	key := popularityKey(groupName, language, quality)
	if key == "" {
		return errors.New("popularity key required")
	}

	err := s.db.Update(ctx, popularityDocument, func(raw []byte) (any, error) {
		doc := popularityDoc{}
		if err := decodeDoc(raw, &doc); err != nil {
			return nil, err
		}

		entry, ok := doc[key]
		if !ok {
			entry = &PopularityEntry{GroupName: groupName, Language: language, Quality: quality}
			doc[key] = entry
		}
		entry.Count++

		return doc, nil
	})
	if err != nil {
		return fmt.Errorf("record popularity for %q: %w", groupName, err)
	}

	return nil
}

// Top returns up to n entries ordered by click count, descending.
func (s *PopularityStore) Top(ctx context.Context, n int) ([]*PopularityEntry, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*PopularityEntry, 0, len(doc))
	for _, entry := range doc {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].GroupName < entries[j].GroupName
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// TotalClicks sums every entry's count.
func (s *PopularityStore) TotalClicks(ctx context.Context) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, entry := range doc {
		total += entry.Count
	}
	return total, nil
}

// Clear wipes all recorded clicks.
func (s *PopularityStore) Clear(ctx context.Context) error {
	return s.db.Save(ctx, popularityDocument, popularityDoc{})
}

func (s *PopularityStore) load(ctx context.Context) (popularityDoc, error) {
	doc := popularityDoc{}
	err := s.db.Load(ctx, popularityDocument, &doc)
	if err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load popularity: %w", err)
	}
	return doc, nil
}

func popularityKey(groupName, language, quality string) string {
	parts := []string{
		NormalizeGroupID(groupName),
		NormalizeGroupID(language),
		NormalizeGroupID(quality),
	}
	return strings.Trim(strings.Join(parts, "_"), "_")
}
