package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type ConnectionCounter interface {
	ConnectionCount(userID string) int
}

type HealthHandler struct {
	connections ConnectionCounter
	startedAt   time.Time
}

func NewHealthHandler(connections ConnectionCounter) *HealthHandler {
	return &HealthHandler{
		connections: connections,
		startedAt:   time.Now(),
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"connections": h.connections.ConnectionCount(""),
	})
}
