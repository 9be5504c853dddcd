package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/quorum/internal/handlers"
	"github.com/nfrund/quorum/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	auth := middleware.Auth(s.stores.Users)
	rateLimiter := middleware.RateLimiter()

	connectHandler := handlers.NewConnectHandler(s.stores.Posts, s.Registry)
	statsHandler := handlers.NewStatsHandler(s.Registry)

	s.E.GET("/connect/:post_id", connectHandler.Connect, rateLimiter, auth)
	s.E.GET("/stats", statsHandler.Stats)

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
