// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package query normalizes free-text requests and resolves them against
// the catalog through a progressive disambiguation state machine.
package query

import (
	"errors"
	"strings"

	"github.com/autobrr/cinedex/internal/models"
)

// ErrQueryTooShort rejects residual phrases under 3 characters before any
// matching happens.
var ErrQueryTooShort = errors.New("search term must be 3+ characters")

const minResidualLength = 3

// stopWords are filler tokens dropped before tag detection.
var stopWords = map[string]struct{}{
	"movie": {}, "dado": {}, "do": {}, "de": {}, "le": {}, "hai": {},
	"bhai": {}, "pls": {}, "please": {}, "bro": {}, "send": {}, "me": {},
	"full": {}, "download": {}, "link": {}, "a": {}, "the": {}, "in": {},
	"is": {}, "it": {}, "ho": {}, "to": {}, "ka": {}, "ki": {},
	"fullhd": {}, "dedo": {}, "new": {},
}

// languageTags maps query tokens to canonical language names.
var languageTags = map[string]string{
	"hindi":     "Hindi",
	"eng":       "English",
	"english":   "English",
	"tamil":     "Tamil",
	"bengali":   "Bengali",
	"malayalam": "Malayalam",
	"punjabi":   "Punjabi",
	"telugu":    "Telugu",
	"marathi":   "Marathi",
	"kannada":   "Kannada",
}

// qualityTags maps query tokens to canonical quality labels.
var qualityTags = map[string]string{
	"4k":    "4K",
	"2k":    "2K",
	"1080":  "1080p",
	"1080p": "1080p",
	"720":   "720p",
	"720p":  "720p",
	"480":   "480p",
	"480p":  "480p",
	"hd":    "720p",
	"sd":    "SD",
}

// Normalized is a parsed query: at most one language, at most one quality,
// and the residual search phrase.
type Normalized struct {
	Raw      string
	Language string
	Quality  string
	Residual string
}

// Normalize tokenizes raw text, drops stop words, captures language and
// quality tags (the last matching token of each kind wins), and joins the
// rest into the residual phrase.
func Normalize(raw string) (*Normalized, error) {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	norm := &Normalized{Raw: raw}
	var residual []string

	for _, token := range strings.Fields(lowered) {
		if _, skip := stopWords[token]; skip {
			continue
		}
		if language, ok := languageTags[token]; ok {
			norm.Language = language
			continue
		}
		if quality, ok := qualityTags[token]; ok {
			norm.Quality = quality
			continue
		}
		residual = append(residual, token)
	}

	norm.Residual = models.NormalizeSearchText(strings.Join(residual, " "))
	if len(norm.Residual) < minResidualLength {
		return nil, ErrQueryTooShort
	}

	return norm, nil
}
