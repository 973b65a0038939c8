package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/db"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

const maxQueryLimit = 1000

// Scheduler is the part of the job scheduler the API drives.
type Scheduler interface {
	Running() bool
	TriggerIngest()
}

type Backfiller interface {
	Start(a models.Asset)
}

type Deps struct {
	Store     *repository.Store
	DB        db.Pinger // nil when running on the in-memory store
	Scheduler Scheduler
	Backfill  Backfiller
	Gatherer  prometheus.Gatherer
	Log       zerolog.Logger
}

type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	store      *repository.Store
	db         db.Pinger
	sched      Scheduler
	backfill   Backfiller
	log        zerolog.Logger
	apiKey     string
}

func NewServer(d Deps, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		store:    d.Store,
		db:       d.DB,
		sched:    d.Scheduler,
		backfill: d.Backfill,
		log:      d.Log,
		apiKey:   apiKey,
	}

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	e.Use(corsMiddleware(corsOrigin))
	e.Use(s.authMiddleware)

	// No auth required
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := e.Group("/v1", requireUser)

	// Asset routes
	v1.GET("/assets", s.handleListAssets)
	v1.POST("/assets", s.handleCreateAsset)
	v1.GET("/assets/:id", s.handleGetAsset)
	v1.DELETE("/assets/:id", s.handleDeleteAsset)

	// Feeds
	v1.GET("/market-anomalies", s.handleMarketAnomalies)
	v1.GET("/alerts", s.handleAlerts)

	s.echo = e
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("REST API server started")
	if s.apiKey != "" {
		s.log.Info().Msg("authentication: enabled (Bearer token)")
	} else {
		s.log.Info().Msg("authentication: disabled (no API_KEY configured)")
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- request helpers ---

func parseLimit(c echo.Context, defaultLimit int) int {
	v := c.QueryParam("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// --- response helpers ---

func writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
