package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kjannette/trahn-tracker/internal/models"
)

func (s *Server) handleMarketAnomalies(c echo.Context) error {
	rows, err := s.store.MarketAnomalies.ListRecent(c.Request().Context(), parseLimit(c, 20))
	if err != nil {
		s.log.Error().Err(err).Msg("market anomalies")
		return writeError(c, http.StatusInternalServerError, "failed to fetch market anomalies")
	}
	if rows == nil {
		rows = []models.MarketAnomaly{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleAlerts(c echo.Context) error {
	rows, err := s.store.Alerts.ListByUser(c.Request().Context(), userID(c), parseLimit(c, 50))
	if err != nil {
		s.log.Error().Err(err).Msg("alerts")
		return writeError(c, http.StatusInternalServerError, "failed to fetch alerts")
	}
	if rows == nil {
		rows = []models.Alert{}
	}
	return c.JSON(http.StatusOK, rows)
}
