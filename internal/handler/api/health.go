package api

import (
	"context"
	"net/http"
	"time"

	xhttp "TradePilot/pkg/http"
	"TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Checker reports whether one dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	log    *logger.Logger
	checks map[string]Checker
}

func NewHealthHandler(lgr *logger.Logger, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{log: lgr, checks: checks}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	code := http.StatusOK
	for name, chk := range h.checks {
		if err := chk.Health(ctx); err != nil {
			h.log.Warn("health check failed", logger.String("dependency", name), logger.Error(err))
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}
