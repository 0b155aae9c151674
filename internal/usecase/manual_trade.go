package usecase

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ManualTradeRequest is an operator-submitted trade. Amount is a decimal string.
type ManualTradeRequest struct {
	TokenContract string `json:"token_contract" validate:"required,eth_address"`
	TradeAction   string `json:"trade_action" validate:"required,oneof=BUY SELL"`
	Amount        string `json:"amount" validate:"required,positive_decimal"`
	Justification string `json:"justification" default:"manual trade"`
}

// SubmitManual records and dispatches one manual trade.
func (s *TradeSubmitter) SubmitManual(ctx context.Context, req ManualTradeRequest) (models.ExecutionResult, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return models.ExecutionResult{}, fmt.Errorf("amount %q must be a positive decimal", req.Amount)
	}
	action := models.TradeAction(req.TradeAction)
	if action != models.ActionBuy && action != models.ActionSell {
		return models.ExecutionResult{}, fmt.Errorf("trade_action %q must be BUY or SELL", req.TradeAction)
	}
	return s.Submit(ctx, &models.Trade{
		ContractAddress: req.TokenContract,
		TradeAction:     action,
		Amount:          amount,
		Justification:   req.Justification,
	}), nil
}
