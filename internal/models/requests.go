// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/autobrr/cinedex/internal/database"
)

const requestsDocument = "requests"

var ErrRequestNotFound = errors.New("request not found")

// RequestCount is one row of the top-requests report.
type RequestCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// RequestStore records unmet demand: title -> requesting user ids. A title
// is cleared only by an explicit broadcast or admin clear.
type RequestStore struct {
	db *database.DB
}

func NewRequestStore(db *database.DB) *RequestStore {
	return &RequestStore{db: db}
}

type requestsDoc map[string][]int64

// Add records a user's request for a title. Idempotent: the returned bool
// is false when the user already requested this title.
func (s *RequestStore) Add(ctx context.Context, title string, userID int64) (bool, error) {
	title = normalizeTitle(title)
	if title == "" {
		return false, errors.New("title required")
	}

	added := false
	err := s.db.Update(ctx, requestsDocument, func(raw []byte) (any, error) {
		doc := requestsDoc{}
		if err := decodeDoc(raw, &doc); err != nil {
			return nil, err
		}

		users := doc[title]
		if !slices.Contains(users, userID) {
			doc[title] = append(users, userID)
			added = true
		}

		return doc, nil
	})
	if err != nil {
		return false, fmt.Errorf("add request %q: %w", title, err)
	}

	return added, nil
}

// Users returns the requesters recorded under a title.
func (s *RequestStore) Users(ctx context.Context, title string) ([]int64, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	users, ok := doc[normalizeTitle(title)]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return users, nil
}

// Remove deletes a title's record entirely, regardless of how many
// requesters it had.
func (s *RequestStore) Remove(ctx context.Context, title string) error {
	title = normalizeTitle(title)

	return s.db.Update(ctx, requestsDocument, func(raw []byte) (any, error) {
		doc := requestsDoc{}
		if err := decodeDoc(raw, &doc); err != nil {
			return nil, err
		}
		delete(doc, title)
		return doc, nil
	})
}

// Clear wipes the whole request list.
func (s *RequestStore) Clear(ctx context.Context) error {
	return s.db.Save(ctx, requestsDocument, requestsDoc{})
}

// Top returns up to n titles ordered by requester count, descending.
func (s *RequestStore) Top(ctx context.Context, n int) ([]RequestCount, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]RequestCount, 0, len(doc))
	for title, users := range doc {
		counts = append(counts, RequestCount{Title: title, Count: len(users)})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Title < counts[j].Title
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// Count returns the number of open request titles.
func (s *RequestStore) Count(ctx context.Context) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(doc), nil
}

func (s *RequestStore) load(ctx context.Context) (requestsDoc, error) {
	doc := requestsDoc{}
	err := s.db.Load(ctx, requestsDocument, &doc)
	if err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load requests: %w", err)
	}
	return doc, nil
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
