// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "strings"

// NormalizeGroupID derives the canonical catalog key from a display title.
// Lowercase, runs of non-alphanumerics collapse to a single underscore.
// Idempotent: normalizing an already normalized id is a no-op.
func NormalizeGroupID(groupName string) string {
	return normalizeRunes(groupName, '_')
}

// NormalizeSearchText lowercases a filename or title into a space-separated
// token blob suitable for substring matching.
func NormalizeSearchText(text string) string {
	return normalizeRunes(text, ' ')
}

func normalizeRunes(text string, sep rune) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSep := false
	for _, r := range strings.ToLower(text) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteRune(sep)
			pendingSep = false
		}
		b.WriteRune(r)
	}

	return b.String()
}
