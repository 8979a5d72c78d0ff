// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cinedex/internal/api/handlers"
	"github.com/autobrr/cinedex/internal/database"
	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/services/demand"
	"github.com/autobrr/cinedex/internal/transport"
)

type nopSender struct{}

func (nopSender) SendMessage(context.Context, int64, string) (int, error) { return 0, nil }
func (nopSender) SendKeyboard(context.Context, int64, string, transport.Keyboard) (int, error) {
	return 0, nil
}
func (nopSender) EditMessage(context.Context, int64, int, string, transport.Keyboard) error {
	return nil
}
func (nopSender) AnswerCallback(context.Context, string, string) error { return nil }

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dem := demand.NewService(models.NewRequestStore(db), models.NewPopularityStore(db), nopSender{}, zerolog.Nop())
	dashboard := handlers.NewDashboardHandler(dem, models.NewCatalogStore(db), "hunter2")

	return NewServer("127.0.0.1", 0, dashboard).Handler()
}

func TestShutdownBeforeStart(t *testing.T) {
	t.Parallel()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dem := demand.NewService(models.NewRequestStore(db), models.NewPopularityStore(db), nopSender{}, zerolog.Nop())
	dashboard := handlers.NewDashboardHandler(dem, models.NewCatalogStore(db), "hunter2")

	// Shutdown can race ahead of Start during teardown; the server is
	// fully built at construction time so this is always safe.
	server := NewServer("127.0.0.1", 0, dashboard)
	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestDashboardRouteMounted(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?secret=hunter2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
