package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reelsort/reelsort/internal/config"
	"github.com/reelsort/reelsort/internal/intent"
	"github.com/reelsort/reelsort/internal/metadata"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"clients": s.hub.ClientCount(),
	})
}

type classifyRequest struct {
	Path     string `json:"path"`
	SeriesID int64  `json:"seriesId"`
}

// handleClassify runs a single path through the engine and returns the
// resulting intent without touching the filesystem.
func (s *Server) handleClassify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Path == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "path is required"})
	}

	snap, ok := s.store.Snapshot(req.SeriesID)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no metadata snapshot for series"})
	}

	result := intent.Classify(req.Path, s.cfg.Rules, snap)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListSeries(c echo.Context) error {
	series, err := s.store.ListSeries(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if series == nil {
		series = []metadata.SeriesInfo{}
	}
	return c.JSON(http.StatusOK, series)
}

// handleGetSeries returns the cached snapshot for one series, including
// its full episode list.
func (s *Server) handleGetSeries(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid series id"})
	}

	snap, ok := s.store.Snapshot(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "series not found"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"seriesId": id,
		"series":   snap.SeriesName(),
		"episodes": snap.Episodes(),
	})
}

// handleRefreshSeries rebuilds the series snapshot from the database and
// swaps it in atomically. In-flight classifications keep the old snapshot.
func (s *Server) handleRefreshSeries(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid series id"})
	}

	snap, err := s.store.Refresh(c.Request().Context(), id)
	if errors.Is(err, metadata.ErrSeriesNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "series not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"seriesId": id,
		"series":   snap.SeriesName(),
		"episodes": snap.Len(),
	})
}

type runScanRequest struct {
	Root     string `json:"root"`
	SeriesID int64  `json:"seriesId"`
}

func (s *Server) handleRunScan(c echo.Context) error {
	var req runScanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Root == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "root is required"})
	}

	snap, ok := s.store.Snapshot(req.SeriesID)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no metadata snapshot for series"})
	}

	report, err := s.scans.Scan(c.Request().Context(), req.Root, req.SeriesID, s.cfg.Rules, snap)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleListScans(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scans.Reports())
}

func (s *Server) handleGetScan(c echo.Context) error {
	report, ok := s.scans.Report(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "scan not found"})
	}

	if c.QueryParam("format") == "yaml" {
		c.Response().Header().Set(echo.HeaderContentType, "application/yaml")
		c.Response().WriteHeader(http.StatusOK)
		return report.WriteYAML(c.Response())
	}
	return c.JSON(http.StatusOK, report)
}

type applyScanRequest struct {
	DryRun bool `json:"dryRun"`
}

// handleApplyScan executes the Rename and Delete intents of a finished
// scan. This is the only place the API mutates the filesystem, and only
// on explicit request.
func (s *Server) handleApplyScan(c echo.Context) error {
	report, ok := s.scans.Report(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "scan not found"})
	}

	var req applyScanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	org := s.organizer
	if req.DryRun {
		org = org.WithDryRun()
	}
	summary := org.Apply(report.Root, report.Results)
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scheduler.Tasks())
}

func (s *Server) handleRunTask(c echo.Context) error {
	if err := s.scheduler.RunNow(c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleLogs(c echo.Context) error {
	if s.logStream == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, s.logStream.Recent())
}
