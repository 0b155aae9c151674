package usecase

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
)

// TradeSubmitter persists a trade as PENDING and hands it to the execution queue
// without waiting for the outcome.
type TradeSubmitter struct {
	ledger     *Ledger
	dispatcher queue.Dispatcher
	log        *logger.Logger
}

func NewTradeSubmitter(ledger *Ledger, dispatcher queue.Dispatcher, lgr *logger.Logger) *TradeSubmitter {
	return &TradeSubmitter{ledger: ledger, dispatcher: dispatcher, log: lgr}
}

// Submit returns a pending result on success. A store failure or an enqueue failure
// becomes a failed result; in the second case the trade is marked FAILED.
func (s *TradeSubmitter) Submit(ctx context.Context, t *models.Trade) models.ExecutionResult {
	if err := s.ledger.CreatePending(ctx, t); err != nil {
		s.log.Error("create pending trade", logger.String("token", t.ContractAddress), logger.Error(err))
		return models.FailedResult(t.ContractAddress, err)
	}

	if err := s.dispatcher.Enqueue(ctx, ExecuteTradeType, ExecuteTradePayload{TradeID: t.TradeID}); err != nil {
		err = fmt.Errorf("dispatch trade: %w", err)
		s.log.Error("enqueue trade", logger.String("trade_id", t.TradeID), logger.Error(err))
		if _, terr := s.ledger.Transition(context.WithoutCancel(ctx), t.TradeID, models.StatusFailed, WithError(err.Error())); terr != nil {
			s.log.Error("mark undispatched trade failed", logger.String("trade_id", t.TradeID), logger.Error(terr))
		}
		res := models.FailedResult(t.ContractAddress, err)
		res.TradeID = t.TradeID
		return res
	}
	return models.AcceptedResult(t)
}
