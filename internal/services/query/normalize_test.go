// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantLanguage string
		wantQuality  string
		wantResidual string
	}{
		{
			name:         "tags and stop words stripped",
			input:        "please send hindi 1080 jawan",
			wantLanguage: "Hindi",
			wantQuality:  "1080p",
			wantResidual: "jawan",
		},
		{
			name:         "no tags",
			input:        "Blade Runner",
			wantResidual: "blade runner",
		},
		{
			name:         "hd maps to 720p",
			input:        "pathaan hd",
			wantQuality:  "720p",
			wantResidual: "pathaan",
		},
		{
			name:         "last tag of each kind wins",
			input:        "jawan hindi tamil 720 1080",
			wantLanguage: "Tamil",
			wantQuality:  "1080p",
			wantResidual: "jawan",
		},
		{
			name:         "mixed case and filler",
			input:        "Bro PLS send me the NEW Pathaan movie download link",
			wantResidual: "pathaan",
		},
		{
			name:         "punctuation folded by search normalization",
			input:        "jawan: part-one",
			wantResidual: "jawan part one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			norm, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, norm.Raw)
			assert.Equal(t, tt.wantLanguage, norm.Language)
			assert.Equal(t, tt.wantQuality, norm.Quality)
			assert.Equal(t, tt.wantResidual, norm.Residual)
		})
	}
}

func TestNormalizeTooShort(t *testing.T) {
	t.Parallel()

	// The length gate applies to the residual, after tags and stop words
	// are gone.
	for _, input := range []string{"", "  ", "ab", "hindi 1080", "please send hd"} {
		_, err := Normalize(input)
		assert.ErrorIs(t, err, ErrQueryTooShort, "input %q", input)
	}
}
