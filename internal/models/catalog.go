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

const catalogDocument = "catalog"

var (
	ErrGroupNotFound   = errors.New("catalog group not found")
	ErrVariantNotFound = errors.New("catalog variant not found")
)

// FileType distinguishes how a file was posted to the source channel.
type FileType string

const (
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
)

// FileRef points at a file held by the chat transport. Immutable once
// created; owned by the language/quality slot that holds it.
type FileRef struct {
	FileID   string   `json:"fileId"`
	FileName string   `json:"fileName"`
	FileType FileType `json:"fileType"`
}

// CatalogEntry aggregates every language/quality variant of one title.
type CatalogEntry struct {
	GroupID    string                        `json:"-"`
	GroupName  string                        `json:"groupName"`
	SearchText string                        `json:"searchAll"`
	Languages  map[string]map[string]FileRef `json:"languages"`
}

// LanguageNames returns the entry's languages in deterministic order.
func (e *CatalogEntry) LanguageNames() []string {
	names := make([]string, 0, len(e.Languages))
	for name := range e.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QualityLabels returns the qualities held under a language in
// deterministic order.
func (e *CatalogEntry) QualityLabels(language string) []string {
	labels := make([]string, 0, len(e.Languages[language]))
	for label := range e.Languages[language] {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// File returns the exact variant, if present.
func (e *CatalogEntry) File(language, quality string) (FileRef, bool) {
	qualities, ok := e.Languages[language]
	if !ok {
		return FileRef{}, false
	}
	file, ok := qualities[quality]
	return file, ok
}

// IngestResult reports what a catalog mutation did.
type IngestResult struct {
	GroupID    string
	GroupName  string
	IsNewGroup bool
}

// CatalogStore manages the group -> language -> quality -> file index as a
// single persisted document.
type CatalogStore struct {
	db *database.DB
}

func NewCatalogStore(db *database.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

type catalogDoc map[string]*CatalogEntry

// Ingest merges one extraction into the catalog. The whole store image is
// loaded, mutated, and saved under the document lock, so concurrent
// arrivals never clobber each other. Reingesting the same filename is a
// no-op on searchText; the exact group/language/quality slot is
// last-writer-wins.
func (s *CatalogStore) Ingest(ctx context.Context, groupName, language, quality string, file FileRef) (*IngestResult, error) {
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return nil, errors.New("group name required")
	}
	if strings.TrimSpace(language) == "" || strings.TrimSpace(quality) == "" {
		return nil, errors.New("language and quality required")
	}
	if file.FileID == "" {
		return nil, errors.New("file id required")
	}

	groupID := NormalizeGroupID(groupName)
	if groupID == "" {
		return nil, fmt.Errorf("group name %q normalizes to nothing", groupName)
	}

	result := &IngestResult{GroupID: groupID, GroupName: groupName}

	err := s.db.Update(ctx, catalogDocument, func(raw []byte) (any, error) {
		doc := catalogDoc{}
		if err := decodeDoc(raw, &doc); err != nil {
			return nil, err
		}

		entry, ok := doc[groupID]
		if !ok {
			entry = &CatalogEntry{
				GroupName:  groupName,
				SearchText: strings.ToLower(groupName),
				Languages:  map[string]map[string]FileRef{},
			}
			doc[groupID] = entry
			result.IsNewGroup = true
		}

		// Append filename tokens only once so a live post followed by a
		// bulk scan of the same file leaves searchText unchanged.
		if tokens := NormalizeSearchText(file.FileName); tokens != "" && !strings.Contains(entry.SearchText, tokens) {
			entry.SearchText += " " + tokens
		}

		if entry.Languages == nil {
			entry.Languages = map[string]map[string]FileRef{}
		}
		if entry.Languages[language] == nil {
			entry.Languages[language] = map[string]FileRef{}
		}
		entry.Languages[language][quality] = file

		return doc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", file.FileName, err)
	}

	return result, nil
}

// Search returns every entry whose searchText contains the query as a
// literal substring, in sorted group id order. No ranking.
func (s *CatalogStore) Search(ctx context.Context, query string) ([]*CatalogEntry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matches []*CatalogEntry
	for _, id := range ids {
		entry := doc[id]
		if strings.Contains(entry.SearchText, query) {
			entry.GroupID = id
			matches = append(matches, entry)
		}
	}

	return matches, nil
}

// Get returns a single entry by its normalized id.
func (s *CatalogStore) Get(ctx context.Context, groupID string) (*CatalogEntry, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := doc[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	entry.GroupID = groupID
	return entry, nil
}

// Count returns the number of indexed groups.
func (s *CatalogStore) Count(ctx context.Context) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(doc), nil
}

func (s *CatalogStore) load(ctx context.Context) (catalogDoc, error) {
	doc := catalogDoc{}
	err := s.db.Load(ctx, catalogDocument, &doc)
	if err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return doc, nil
}
