package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database  string `json:"database"`
	Scheduler string `json:"scheduler"`
}

func (s *Server) handleHealth(c echo.Context) error {
	status := "ok"
	dbStatus := "memory"
	if s.db != nil {
		dbStatus = "connected"
		if err := s.db.Ping(c.Request().Context()); err != nil {
			dbStatus = "disconnected"
			status = "degraded"
		}
	}

	schedStatus := "stopped"
	if s.sched != nil && s.sched.Running() {
		schedStatus = "running"
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, Scheduler: schedStatus},
	})
}
