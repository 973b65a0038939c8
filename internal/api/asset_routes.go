package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

const (
	chartPoints     = 100
	recentAnomalies = 10
)

// assetSummary carries the latest observation only, if any.
type assetSummary struct {
	models.Asset
	Prices []models.PriceObservation `json:"prices"`
}

type assetDetail struct {
	models.Asset
	Prices    []models.PriceObservation `json:"prices"`
	Anomalies []models.Anomaly          `json:"anomalies"`
}

type createAssetRequest struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

func (s *Server) handleListAssets(c echo.Context) error {
	ctx := c.Request().Context()
	assets, err := s.store.Assets.ListByUser(ctx, userID(c))
	if err != nil {
		s.log.Error().Err(err).Msg("list assets")
		return writeError(c, http.StatusInternalServerError, "failed to fetch assets")
	}

	out := make([]assetSummary, 0, len(assets))
	for _, a := range assets {
		item := assetSummary{Asset: a, Prices: []models.PriceObservation{}}
		latest, err := s.store.Prices.Latest(ctx, a.ID)
		switch {
		case err == nil:
			item.Prices = append(item.Prices, *latest)
		case !errors.Is(err, repository.ErrNotFound):
			s.log.Error().Err(err).Int64("asset_id", a.ID).Msg("latest price")
			return writeError(c, http.StatusInternalServerError, "failed to fetch prices")
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateAsset(c echo.Context) error {
	var req createAssetRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		return writeError(c, http.StatusBadRequest, "symbol is required")
	}
	class, ok := models.ClassifyLegacy(req.Type, req.Symbol)
	if !ok {
		return writeError(c, http.StatusBadRequest, "unsupported asset type "+req.Type)
	}
	if req.Name == "" {
		req.Name = req.Symbol
	}

	a, err := s.store.Assets.Create(c.Request().Context(), &models.Asset{
		Symbol: req.Symbol,
		Class:  class,
		Name:   req.Name,
		UserID: userID(c),
	})
	if err != nil {
		s.log.Error().Err(err).Str("symbol", req.Symbol).Msg("create asset")
		return writeError(c, http.StatusBadRequest, "failed to create asset")
	}

	if s.sched != nil {
		s.sched.TriggerIngest()
	}
	if s.backfill != nil {
		s.backfill.Start(*a)
	}
	return c.JSON(http.StatusCreated, a)
}

func (s *Server) handleGetAsset(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid asset id")
	}
	ctx := c.Request().Context()

	a, status := s.ownedAsset(c, id)
	if a == nil {
		return writeError(c, status, http.StatusText(status))
	}

	prices, err := s.store.Prices.History(ctx, id, chartPoints)
	if err != nil {
		s.log.Error().Err(err).Int64("asset_id", id).Msg("price history")
		return writeError(c, http.StatusInternalServerError, "failed to fetch prices")
	}
	anomalies, err := s.store.Anomalies.ListByAsset(ctx, id, recentAnomalies)
	if err != nil {
		s.log.Error().Err(err).Int64("asset_id", id).Msg("anomalies")
		return writeError(c, http.StatusInternalServerError, "failed to fetch anomalies")
	}
	if prices == nil {
		prices = []models.PriceObservation{}
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	return c.JSON(http.StatusOK, assetDetail{Asset: *a, Prices: prices, Anomalies: anomalies})
}

func (s *Server) handleDeleteAsset(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid asset id")
	}

	a, status := s.ownedAsset(c, id)
	if a == nil {
		return writeError(c, status, http.StatusText(status))
	}
	if err := s.store.Assets.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, http.StatusNotFound, http.StatusText(http.StatusNotFound))
		}
		s.log.Error().Err(err).Int64("asset_id", id).Msg("delete asset")
		return writeError(c, http.StatusInternalServerError, "failed to delete asset")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Asset deleted"})
}

// ownedAsset loads id for the caller. A nil asset comes with the status to answer.
func (s *Server) ownedAsset(c echo.Context, id int64) (*models.Asset, int) {
	a, err := s.store.Assets.Get(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, http.StatusNotFound
	case err != nil:
		s.log.Error().Err(err).Int64("asset_id", id).Msg("get asset")
		return nil, http.StatusInternalServerError
	case a.UserID != userID(c):
		return nil, http.StatusForbidden
	}
	return a, http.StatusOK
}
