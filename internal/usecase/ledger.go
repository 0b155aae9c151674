package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"

	"github.com/google/uuid"
)

// Ledger owns trade status rules. Every accepted write is published as a TradeEvent.
type Ledger struct {
	store   drepo.TradeStore
	events  drepo.TradeEventPublisher
	locker  drepo.Locker
	metrics drepo.Metrics
	log     *logger.Logger
	lockTTL time.Duration
	now     func() time.Time
}

type LedgerOption func(*Ledger)

// WithTradeLockTTL bounds how long a per-trade lock is held before it expires.
func WithTradeLockTTL(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTTL = d
		}
	}
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(
	store drepo.TradeStore,
	events drepo.TradeEventPublisher,
	locker drepo.Locker,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	opts ...LedgerOption,
) *Ledger {
	l := &Ledger{
		store:   store,
		events:  events,
		locker:  locker,
		metrics: metrics,
		log:     lgr,
		lockTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreatePending assigns an id if missing and stores t as PENDING.
func (l *Ledger) CreatePending(ctx context.Context, t *models.Trade) error {
	if t.TradeID == "" {
		t.TradeID = uuid.NewString()
	}
	now := l.now().UTC()
	t.ContractAddress = models.NormalizeAddress(t.ContractAddress)
	t.Status = models.StatusPending
	t.ExecutionResponse = nil
	t.Error = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := l.store.InsertTrade(ctx, t); err != nil {
		l.metrics.RecordError("ledger_insert")
		var pe *models.PersistenceError
		if errors.As(err, &pe) {
			return err
		}
		return &models.PersistenceError{Op: "insert trade", Key: t.TradeID, Err: err}
	}
	l.metrics.IncTransition(models.StatusPending)
	l.publish(ctx, t, "")
	return nil
}

type transition struct {
	response *string
	errMsg   *string
}

type TransitionOption func(*transition)

func WithResponse(s string) TransitionOption {
	return func(t *transition) { t.response = &s }
}

func WithError(msg string) TransitionOption {
	return func(t *transition) { t.errMsg = &msg }
}

// Transition moves a trade to next if the lifecycle allows it and returns the stored
// trade. Rejected moves return models.ErrInvalidTransition and leave the row untouched.
func (l *Ledger) Transition(ctx context.Context, tradeID string, next models.TradeStatus, opts ...TransitionOption) (*models.Trade, error) {
	var tr transition
	for _, opt := range opts {
		opt(&tr)
	}

	t, err := l.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load trade %s: %w", tradeID, err)
	}
	prev := t.Status
	if !prev.CanTransition(next) {
		return t, fmt.Errorf("%w: %s -> %s for %s", models.ErrInvalidTransition, prev, next, tradeID)
	}

	t.Status = next
	t.UpdatedAt = l.now().UTC()
	if tr.response != nil {
		t.ExecutionResponse = tr.response
	}
	if tr.errMsg != nil {
		t.Error = tr.errMsg
	}
	if err := l.store.UpdateTrade(ctx, t); err != nil {
		l.metrics.RecordError("ledger_update")
		return nil, &models.PersistenceError{Op: "update trade", Key: tradeID, Err: err}
	}

	l.metrics.IncTransition(next)
	l.log.Info("trade transition",
		logger.String("trade_id", tradeID),
		logger.String("from", string(prev)),
		logger.String("to", string(next)))
	l.publish(ctx, t, prev)
	return t, nil
}

// Get returns the stored trade.
func (l *Ledger) Get(ctx context.Context, tradeID string) (*models.Trade, error) {
	return l.store.GetTrade(ctx, tradeID)
}

// WithTradeLock runs fn while holding the cross-process lock for tradeID. It polls until
// the lock is free or ctx is done.
func (l *Ledger) WithTradeLock(ctx context.Context, tradeID string, fn func(context.Context) error) error {
	key := "trade:" + tradeID
	token, err := acquire(ctx, l.locker, key, l.lockTTL, 200*time.Millisecond)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			l.log.Warn("release trade lock", logger.String("trade_id", tradeID), logger.Error(err))
		}
	}()
	return fn(ctx)
}

func (l *Ledger) publish(ctx context.Context, t *models.Trade, prev models.TradeStatus) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishTradeEvent(ctx, models.NewTradeEvent(t, prev)); err != nil {
		l.log.Warn("publish trade event", logger.String("trade_id", t.TradeID), logger.Error(err))
	}
}

func acquire(ctx context.Context, locker drepo.Locker, key string, ttl, poll time.Duration) (string, error) {
	for {
		token, ok, err := locker.TryLock(ctx, key, ttl)
		if err != nil {
			return "", fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(poll):
		}
	}
}
