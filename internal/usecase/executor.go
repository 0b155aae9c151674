package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/util"
)

// BuildInstruction renders the wallet-agent instruction for a trade.
func BuildInstruction(t *models.Trade) (string, error) {
	amount := t.Amount.String()
	switch t.TradeAction {
	case models.ActionBuy:
		return fmt.Sprintf("swap %s ETH for %s erc-20 tokens.", amount, t.ContractAddress), nil
	case models.ActionSell:
		return fmt.Sprintf("swap %s %s erc-20 tokens for ETH.", amount, t.ContractAddress), nil
	default:
		return "", fmt.Errorf("no instruction for trade action %q", t.TradeAction)
	}
}

// Executor runs one trade through the wallet agent and records the outcome.
type Executor struct {
	ledger  *Ledger
	wallet  service.WalletAgent
	timeout time.Duration
	log     *logger.Logger
}

// NewExecutor builds an executor. A positive timeout caps each wallet-agent run.
func NewExecutor(ledger *Ledger, wallet service.WalletAgent, timeout time.Duration, lgr *logger.Logger) *Executor {
	return &Executor{ledger: ledger, wallet: wallet, timeout: timeout, log: lgr}
}

// Execute marks the trade PROCESSING, drains the wallet-agent stream and writes COMPLETED
// with the last agent chunk or FAILED with the error. It never retries.
func (e *Executor) Execute(ctx context.Context, t *models.Trade) models.ExecutionOutcome {
	log := e.log.With(logger.String("trade_id", t.TradeID))

	instruction, err := BuildInstruction(t)
	if err != nil {
		return e.fail(ctx, log, t.TradeID, err)
	}

	if _, err := e.ledger.Transition(ctx, t.TradeID, models.StatusProcessing); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			log.Warn("trade not executable", logger.Error(err))
			return models.ExecutionOutcome{Status: models.StatusFailed, Error: err.Error()}
		}
		return e.fail(ctx, log, t.TradeID, err)
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log.Info("executing trade", logger.String("instruction", instruction))
	response, err := e.run(runCtx, log, instruction)
	if err != nil {
		return e.fail(ctx, log, t.TradeID, &models.ExecutionError{TradeID: t.TradeID, Err: err})
	}

	if _, err := e.ledger.Transition(ctx, t.TradeID, models.StatusCompleted, WithResponse(response)); err != nil {
		log.Error("record completion", logger.Error(err))
	}
	log.Info("trade completed", logger.String("response", util.Truncate(response, 200)))
	return models.ExecutionOutcome{Status: models.StatusCompleted, Response: response}
}

func (e *Executor) run(ctx context.Context, log *logger.Logger, instruction string) (string, error) {
	sr, err := e.wallet.Stream(ctx, instruction)
	if err != nil {
		return "", err
	}

	type result struct {
		response string
		err      error
	}
	done := make(chan result, 1)
	go func() {
		defer sr.Close()
		var response string
		for {
			chunk, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				done <- result{response: response}
				return
			}
			if err != nil {
				done <- result{err: err}
				return
			}
			switch chunk.Source {
			case models.ChunkAgent:
				response = chunk.Content
			case models.ChunkTools:
				log.Info("wallet tool output", logger.String("content", util.Truncate(chunk.Content, 500)))
			}
		}
	}()

	// The stream is drained in the background so a run that ignores cancellation
	// still turns into a failure once ctx expires.
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("wallet agent: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.response == "" {
			log.Warn("wallet agent finished without a final answer")
		}
		return r.response, nil
	}
}

// fail logs cause in full and stores the wallet's own message; the row already
// carries the trade id.
func (e *Executor) fail(ctx context.Context, log *logger.Logger, tradeID string, cause error) models.ExecutionOutcome {
	log.Error("trade failed", logger.Error(cause))
	msg := cause.Error()
	var execErr *models.ExecutionError
	if errors.As(cause, &execErr) && execErr.Err != nil {
		msg = execErr.Err.Error()
	}
	if _, err := e.ledger.Transition(context.WithoutCancel(ctx), tradeID, models.StatusFailed, WithError(msg)); err != nil {
		log.Error("record failure", logger.Error(err))
	}
	return models.ExecutionOutcome{Status: models.StatusFailed, Error: msg}
}
