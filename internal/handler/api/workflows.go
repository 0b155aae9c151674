package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/usecase"
	xhttp "TradePilot/pkg/http"
	"TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

const cronSuccessMessage = "Cron job executed successfully!"

type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleReport, error)
}

type AgentRefresher interface {
	Refresh(ctx context.Context, contract string) (*models.AgentRecord, error)
}

type ManualSubmitter interface {
	SubmitManual(ctx context.Context, req usecase.ManualTradeRequest) (models.ExecutionResult, error)
}

type TradeSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type DigestPublisher interface {
	Publish(ctx context.Context) (*models.Digest, error)
}

// WorkflowHandler exposes the cycles, manual trades and the cron trigger.
type WorkflowHandler struct {
	log        *logger.Logger
	trader     CycleRunner
	manager    CycleRunner
	analyst    AgentRefresher
	submitter  ManualSubmitter
	sweeper    TradeSweeper
	digest     DigestPublisher
	cronSecret string
	cronJobs   map[string]func(context.Context) error
}

func NewWorkflowHandler(
	lgr *logger.Logger,
	trader, manager CycleRunner,
	analyst AgentRefresher,
	submitter ManualSubmitter,
	sweeper TradeSweeper,
	digest DigestPublisher,
	cronSecret string,
) *WorkflowHandler {
	h := &WorkflowHandler{
		log:        lgr,
		trader:     trader,
		manager:    manager,
		analyst:    analyst,
		submitter:  submitter,
		sweeper:    sweeper,
		digest:     digest,
		cronSecret: cronSecret,
	}
	h.cronJobs = map[string]func(context.Context) error{
		"analyst": func(ctx context.Context) error { _, err := h.analyst.Refresh(ctx, ""); return err },
		"trader":  func(ctx context.Context) error { _, err := h.trader.RunCycle(ctx); return err },
		"manager": func(ctx context.Context) error { _, err := h.manager.RunCycle(ctx); return err },
		"sweep":   func(ctx context.Context) error { _, err := h.sweeper.Sweep(ctx); return err },
		"digest":  func(ctx context.Context) error { _, err := h.digest.Publish(ctx); return err },
	}
	return h
}

func (h *WorkflowHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/trader", h.Trader)
	g.GET("/manager", h.Manager)
	g.POST("/trade", h.ManualTrade)

	cron := g.Group("/cron", h.requireCronSecret)
	cron.GET("", h.Cron)
	cron.GET("/:job", h.Cron)
}

func (h *WorkflowHandler) Trader(c echo.Context) error {
	report, err := h.trader.RunCycle(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.log, "trader cycle", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *WorkflowHandler) Manager(c echo.Context) error {
	report, err := h.manager.RunCycle(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.log, "manager cycle", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *WorkflowHandler) ManualTrade(c echo.Context) error {
	req := &usecase.ManualTradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.submitter.SubmitManual(c.Request().Context(), *req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if res.Status == models.ResultFailed {
		h.log.Error("manual trade not dispatched", logger.String("trade_id", res.TradeID), logger.String("error", res.Error))
		return xhttp.DataResponse(c, http.StatusInternalServerError, res)
	}
	return xhttp.AcceptedResponse(c, res)
}

// Cron runs one scheduled job. The bare path refreshes an analyst agent.
func (h *WorkflowHandler) Cron(c echo.Context) error {
	name := c.Param("job")
	if name == "" {
		name = "analyst"
	}
	job, ok := h.cronJobs[name]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("unknown cron job "+name))
	}

	h.log.Info("cron job triggered", logger.String("job", name))
	if err := job(c.Request().Context()); err != nil {
		return errorResponse(c, h.log, "cron "+name, err)
	}
	return xhttp.MessageResponse(c, http.StatusOK, cronSuccessMessage, nil)
}

func (h *WorkflowHandler) requireCronSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.cronSecret == "" {
			return next(c)
		}
		token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
			return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Unauthorized"))
		}
		return next(c)
	}
}
