package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// Component is one dependency checked by Health. Required components take
// the service down when they fail; optional ones only degrade it.
type Component struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           pinger
	components   []Component
	checkTimeout time.Duration
}

func NewHealthHandler(db pinger, components ...Component) *HealthHandler {
	return &HealthHandler{
		db:           db,
		components:   components,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and basic component statuses.
// @Summary Health check
// @Description Returns overall status with database, cache and lock connectivity results
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"
	components := make(map[string]any, len(h.components)+1)

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}
	components["database"] = map[string]any{"status": dbStatus}

	for _, comp := range h.components {
		status := "disabled"
		if comp.Ping != nil {
			status = "up"
			if err := comp.Ping(ctx); err != nil {
				status = "down"
				switch {
				case comp.Required:
					overallStatus = "down"
				case overallStatus == "ok":
					overallStatus = "degraded"
				}
			}
		}
		components[comp.Name] = map[string]any{"status": status}
	}

	code := http.StatusOK
	if overallStatus == "down" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":     overallStatus,
		"timestamp":  time.Now().Format(time.RFC3339),
		"components": components,
	})
}
