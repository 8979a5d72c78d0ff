// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cinedex/internal/services/demand"
)

const dashboardTopN = 20

// CatalogCounter is the catalog slice the dashboard needs.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardHandler serves the read-only admin snapshot.
type DashboardHandler struct {
	demand  *demand.Service
	catalog CatalogCounter
	secret  string
}

func NewDashboardHandler(dem *demand.Service, catalog CatalogCounter, secret string) *DashboardHandler {
	return &DashboardHandler{
		demand:  dem,
		catalog: catalog,
		secret:  secret,
	}
}

func (h *DashboardHandler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Get)
}

type dashboardResponse struct {
	*demand.Dashboard
	TotalFiles int `json:"totalFiles"`
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		RespondError(w, http.StatusForbidden, "Forbidden: Invalid API Secret")
		return
	}

	snapshot, err := h.demand.Snapshot(r.Context(), dashboardTopN)
	if err != nil {
		log.Error().Err(err).Msg("failed to build dashboard snapshot")
		RespondError(w, http.StatusInternalServerError, "Failed to load dashboard data")
		return
	}

	totalFiles, err := h.catalog.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count catalog groups")
		RespondError(w, http.StatusInternalServerError, "Failed to load dashboard data")
		return
	}

	RespondJSON(w, http.StatusOK, dashboardResponse{
		Dashboard:  snapshot,
		TotalFiles: totalFiles,
	})
}
