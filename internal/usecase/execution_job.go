package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
)

// ExecuteTradeType is the queue message type for trade execution.
const ExecuteTradeType = "trade.execute"

type ExecuteTradePayload struct {
	TradeID string `json:"trade_id"`
}

// ExecuteTradeJob is the only writer of PROCESSING and terminal states for dispatched
// trades. It holds the per-trade lock for the whole run and never asks for a retry.
type ExecuteTradeJob struct {
	ledger   *Ledger
	executor *Executor
	log      *logger.Logger
}

var _ queue.Job = (*ExecuteTradeJob)(nil)

func NewExecuteTradeJob(ledger *Ledger, executor *Executor, lgr *logger.Logger) *ExecuteTradeJob {
	return &ExecuteTradeJob{ledger: ledger, executor: executor, log: lgr}
}

func (j *ExecuteTradeJob) Name() string { return "execute-trade" }
func (j *ExecuteTradeJob) Type() string { return ExecuteTradeType }

func (j *ExecuteTradeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[ExecuteTradePayload](payload)
	if err != nil || p.TradeID == "" {
		j.log.Error("invalid execute payload", logger.String("payload", string(payload)), logger.Error(err))
		return nil
	}
	log := j.log.With(logger.String("trade_id", p.TradeID))

	err = j.ledger.WithTradeLock(ctx, p.TradeID, func(ctx context.Context) error {
		t, err := j.ledger.Get(ctx, p.TradeID)
		if err != nil {
			return fmt.Errorf("load trade: %w", err)
		}
		if t.Status != models.StatusPending {
			log.Warn("skipping trade that is no longer pending", logger.String("status", string(t.Status)))
			return nil
		}
		outcome := j.executor.Execute(ctx, t)
		log.Info("execution finished", logger.String("status", string(outcome.Status)))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("execute trade job", logger.Error(err))
	}
	return nil
}
