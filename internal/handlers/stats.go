package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/quorum/internal/relay"
)

// StatsHandler exposes the registry's live room index for operators.
type StatsHandler struct {
	registry *relay.Registry
}

// NewStatsHandler creates the handler for GET /stats.
func NewStatsHandler(registry *relay.Registry) *StatsHandler {
	return &StatsHandler{registry: registry}
}

// Stats returns the current rooms and their member session ids.
func (h *StatsHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Stats(c.Request().Context()))
}
