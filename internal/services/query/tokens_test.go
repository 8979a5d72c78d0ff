// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRoundTrips(t *testing.T) {
	t.Parallel()

	// Group ids contain underscores; the token format must not care.
	action, err := ParseAction(EncodeLanguageChoice("the_great_escape", "Hindi"))
	require.NoError(t, err)
	assert.Equal(t, &Action{Kind: ActionLanguageChoice, GroupID: "the_great_escape", Language: "Hindi"}, action)

	action, err = ParseAction(EncodeQualityChoice("blade_runner_2049", "English", "1080p"))
	require.NoError(t, err)
	assert.Equal(t, &Action{Kind: ActionQualityChoice, GroupID: "blade_runner_2049", Language: "English", Quality: "1080p"}, action)

	action, err = ParseAction(EncodeRequestConfirm("mission impossible"))
	require.NoError(t, err)
	assert.Equal(t, &Action{Kind: ActionRequestConfirm, Title: "mission impossible"}, action)
}

func TestParseActionMalformed(t *testing.T) {
	t.Parallel()

	for _, data := range []string{
		"",
		"lang",
		"lang|only_group",
		"lang|group||",
		"qual|group|Hindi",
		"request|",
		"bogus|group|Hindi",
	} {
		_, err := ParseAction(data)
		assert.Error(t, err, "data %q", data)
	}
}
