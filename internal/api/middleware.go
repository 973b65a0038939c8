package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller identity set by the upstream auth layer.
const HeaderUserID = "X-User-ID"

const userIDKey = "userID"

func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if s.apiKey == "" || path == "/health" || path == "/metrics" {
			return next(c)
		}

		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if auth == "" {
			return writeError(c, http.StatusUnauthorized, "missing Authorization header")
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			return writeError(c, http.StatusUnauthorized, "invalid API key")
		}
		return next(c)
	}
}

func corsMiddleware(allowOrigin string) echo.MiddlewareFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderUserID)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Request().Header.Get(HeaderUserID), 10, 64)
		if err != nil || id <= 0 {
			return writeError(c, http.StatusUnauthorized, "missing or invalid "+HeaderUserID+" header")
		}
		c.Set(userIDKey, id)
		return next(c)
	}
}

func userID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return nil
	}
}
