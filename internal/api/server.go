// Package api exposes the classification engine, scan reports and
// metadata snapshots over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelsort/reelsort/internal/config"
	"github.com/reelsort/reelsort/internal/logger"
	"github.com/reelsort/reelsort/internal/metadata"
	"github.com/reelsort/reelsort/internal/organizer"
	"github.com/reelsort/reelsort/internal/scan"
	"github.com/reelsort/reelsort/internal/scheduler"
	"github.com/reelsort/reelsort/internal/websocket"
)

// Server handles HTTP requests for the reelsort API.
type Server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	logger zerolog.Logger
	cfg    *config.Config

	store     *metadata.Store
	scans     *scan.Service
	organizer *organizer.Service
	scheduler *scheduler.Scheduler
	logStream *logger.Stream
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, store *metadata.Store, scans *scan.Service, org *organizer.Service, sched *scheduler.Scheduler, hub *websocket.Hub, logStream *logger.Stream, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		hub:       hub,
		logger:    log.With().Str("component", "api").Logger(),
		cfg:       cfg,
		store:     store,
		scans:     scans,
		organizer: org,
		scheduler: sched,
		logStream: logStream,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
