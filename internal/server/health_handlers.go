package server

import (
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"medidiet/internal/metrics"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Uptime    float64           `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	GoVersion string            `json:"goVersion"`
	System    metrics.SysHealth `json:"system"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	status := "healthy"
	if err := s.metrics.Ping(ctx); err != nil {
		requestLog(c).Error().Err(err).Msg("database ping failed")
		status = "degraded"
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:    status,
		Uptime:    time.Since(s.started).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		System:    metrics.GetSysHealth(ctx, filepath.Dir(s.cfg.DatabasePath)),
	})
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "✅ MediDiet Backend is Running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}
