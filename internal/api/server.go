// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api serves the admin dashboard HTTP surface.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cinedex/internal/api/handlers"
)

type Server struct {
	addr      string
	dashboard *handlers.DashboardHandler

	httpServer *http.Server
}

// NewServer builds the server and its http.Server up front so Start and
// Shutdown can run from different goroutines without coordination.
func NewServer(host string, port int, dashboard *handlers.DashboardHandler) *Server {
	s := &Server{
		addr:      net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		dashboard: dashboard,
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})
	r.Use(corsMiddleware.Handler)

	r.Route("/api", func(r chi.Router) {
		s.dashboard.Routes(r)

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
