package api

import (
	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	xhttp "TradePilot/pkg/http"
	"TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

type TradeListRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=PENDING PROCESSING COMPLETED FAILED"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

type DigestListRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=100"`
}

// RecordsHandler serves stored agents, trades and digests.
type RecordsHandler struct {
	log     *logger.Logger
	agents  drepo.AgentStore
	trades  drepo.TradeStore
	digests drepo.DigestStore
	analyst AgentRefresher
	digest  DigestPublisher
}

func NewRecordsHandler(
	lgr *logger.Logger,
	agents drepo.AgentStore,
	trades drepo.TradeStore,
	digests drepo.DigestStore,
	analyst AgentRefresher,
	digest DigestPublisher,
) *RecordsHandler {
	return &RecordsHandler{log: lgr, agents: agents, trades: trades, digests: digests, analyst: analyst, digest: digest}
}

func (h *RecordsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/agents", h.RefreshAgent)
	g.GET("/agents", h.ListAgents)
	g.GET("/agents/:address", h.GetAgent)
	g.GET("/trades", h.ListTrades)
	g.GET("/trades/:id", h.GetTrade)
	g.GET("/tweets", h.ListDigests)
	g.GET("/influencer", h.PublishDigest)
}

// RefreshAgent analyzes ?contract=, or a random configured contract.
func (h *RecordsHandler) RefreshAgent(c echo.Context) error {
	contract := c.QueryParam("contract")
	if contract != "" {
		if err := xhttp.Validate(struct {
			Contract string `json:"contract" validate:"eth_address"`
		}{contract}); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("contract must be a 0x-prefixed 20-byte hex address"))
		}
	}
	rec, err := h.analyst.Refresh(c.Request().Context(), contract)
	if err != nil {
		return errorResponse(c, h.log, "refresh agent", err)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *RecordsHandler) ListAgents(c echo.Context) error {
	list, err := h.agents.AllAgents(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.log, "list agents", err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *RecordsHandler) GetAgent(c echo.Context) error {
	rec, err := h.agents.GetAgent(c.Request().Context(), models.NormalizeAddress(c.Param("address")))
	if err != nil {
		return errorResponse(c, h.log, "get agent", err)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *RecordsHandler) ListTrades(c echo.Context) error {
	req := &TradeListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.trades.ListTrades(c.Request().Context(), models.TradeFilter{
		Status: models.TradeStatus(req.Status),
		Limit:  req.Limit,
	})
	if err != nil {
		return errorResponse(c, h.log, "list trades", err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *RecordsHandler) GetTrade(c echo.Context) error {
	t, err := h.trades.GetTrade(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, h.log, "get trade", err)
	}
	return xhttp.SuccessResponse(c, t)
}

func (h *RecordsHandler) ListDigests(c echo.Context) error {
	req := &DigestListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.digests.LatestDigests(c.Request().Context(), req.Limit)
	if err != nil {
		return errorResponse(c, h.log, "list digests", err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

// PublishDigest writes and stores a new market update.
func (h *RecordsHandler) PublishDigest(c echo.Context) error {
	d, err := h.digest.Publish(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.log, "publish digest", err)
	}
	return xhttp.SuccessResponse(c, d)
}
