package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// Sweeper fails PENDING trades that were never picked up by an executor.
type Sweeper struct {
	ledger  *Ledger
	trades  drepo.TradeStore
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewSweeper(ledger *Ledger, trades drepo.TradeStore, timeout time.Duration, lgr *logger.Logger) *Sweeper {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Sweeper{ledger: ledger, trades: trades, log: lgr, timeout: timeout, now: time.Now}
}

// Sweep marks every PENDING trade older than the timeout as FAILED and returns how many
// it changed. Trades whose lock is busy are left for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.timeout)
	stale, err := s.trades.ListTrades(ctx, models.TradeFilter{Status: models.StatusPending, Before: cutoff})
	if err != nil {
		return 0, fmt.Errorf("list pending trades: %w", err)
	}

	reason := fmt.Sprintf("not executed within %s of creation", s.timeout)
	swept := 0
	for _, t := range stale {
		lockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.ledger.WithTradeLock(lockCtx, t.TradeID, func(context.Context) error {
			_, err := s.ledger.Transition(ctx, t.TradeID, models.StatusFailed, WithError(reason))
			return err
		})
		cancel()

		switch {
		case err == nil:
			swept++
		case errors.Is(err, models.ErrInvalidTransition):
			// picked up after listing
		default:
			s.log.Warn("sweep trade", logger.String("trade_id", t.TradeID), logger.Error(err))
		}
	}
	if swept > 0 {
		s.log.Info("swept orphaned trades", logger.Int("count", swept))
	}
	return swept, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("sweep failed", logger.Error(err))
			}
		}
	}
}
