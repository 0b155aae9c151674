package api

import (
	"context"
	"errors"
	"net/http"

	"TradePilot/internal/domain/models"
	xhttp "TradePilot/pkg/http"
	"TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain errors onto transport statuses.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr *xhttp.AppError
		dp     *models.DataProviderError
		sv     *models.SchemaValidationError
		ai     *models.AllocationInvariantError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrNoAgents), errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrCycleInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrMissingHandle):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.As(err, &dp), errors.As(err, &sv):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.As(err, &ai):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func errorResponse(c echo.Context, lgr *logger.Logger, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		lgr.Error(op+" failed", logger.Int("status", appErr.Status), logger.Error(err))
	} else {
		lgr.Warn(op+" rejected", logger.Int("status", appErr.Status), logger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
