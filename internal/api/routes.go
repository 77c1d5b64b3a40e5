package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil || v.Status >= 500 {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.handleHealth)
	api.POST("/classify", s.handleClassify)

	api.GET("/series", s.handleListSeries)
	api.GET("/series/:id", s.handleGetSeries)
	api.POST("/series/:id/refresh", s.handleRefreshSeries)

	api.GET("/scans", s.handleListScans)
	api.POST("/scans", s.handleRunScan)
	api.GET("/scans/:id", s.handleGetScan)
	api.POST("/scans/:id/apply", s.handleApplyScan)

	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks/:id/run", s.handleRunTask)

	api.GET("/logs", s.handleLogs)

	s.echo.GET("/ws", s.hub.HandleWebSocket)
}
