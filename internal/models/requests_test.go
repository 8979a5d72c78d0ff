// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAddIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewRequestStore(newTestDB(t))

	added, err := store.Add(ctx, "Jawan", 100)
	require.NoError(t, err)
	assert.True(t, added)

	// Same user, same title (case-insensitive): size stays 1.
	added, err = store.Add(ctx, "  JAWAN ", 100)
	require.NoError(t, err)
	assert.False(t, added)

	users, err := store.Users(ctx, "jawan")
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, users)

	added, err = store.Add(ctx, "jawan", 200)
	require.NoError(t, err)
	assert.True(t, added)

	users, err = store.Users(ctx, "jawan")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRequestUsersNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewRequestStore(newTestDB(t))

	_, err := store.Users(ctx, "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewRequestStore(newTestDB(t))

	_, err := store.Add(ctx, "jawan", 100)
	require.NoError(t, err)
	_, err = store.Add(ctx, "jawan", 200)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "jawan"))

	_, err = store.Users(ctx, "jawan")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestTopAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewRequestStore(newTestDB(t))

	for _, userID := range []int64{1, 2, 3} {
		_, err := store.Add(ctx, "pathaan", userID)
		require.NoError(t, err)
	}
	_, err := store.Add(ctx, "jawan", 1)
	require.NoError(t, err)

	top, err := store.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, RequestCount{Title: "pathaan", Count: 3}, top[0])
	assert.Equal(t, RequestCount{Title: "jawan", Count: 1}, top[1])

	top, err = store.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "pathaan", top[0].Title)

	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
