package repository

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"
)

// AgentStore persists AgentRecords keyed by lower-cased contract address.
type AgentStore interface {
	// UpsertAgent inserts or fully replaces the record for its contract address.
	UpsertAgent(ctx context.Context, a *models.AgentRecord) error
	GetAgent(ctx context.Context, contract string) (*models.AgentRecord, error)
	// LatestAgents returns up to limit records, most recently updated first.
	LatestAgents(ctx context.Context, limit int) ([]models.AgentRecord, error)
	AllAgents(ctx context.Context) ([]models.AgentRecord, error)
}

// TradeStore persists trades. Status rules live in the ledger, not here.
type TradeStore interface {
	InsertTrade(ctx context.Context, t *models.Trade) error
	// UpdateTrade writes status, execution_response, error and updated_at.
	UpdateTrade(ctx context.Context, t *models.Trade) error
	GetTrade(ctx context.Context, tradeID string) (*models.Trade, error)
	// ListTrades returns matching trades, newest first.
	ListTrades(ctx context.Context, f models.TradeFilter) ([]models.Trade, error)
}

type DigestStore interface {
	SaveDigest(ctx context.Context, d *models.Digest) error
	LatestDigests(ctx context.Context, limit int) ([]models.Digest, error)
}

// Store is one storage backend serving every table.
type Store interface {
	AgentStore
	TradeStore
	DigestStore
	Health(ctx context.Context) error
	Close() error
}

type TradeEventPublisher interface {
	PublishTradeEvent(ctx context.Context, ev models.TradeEvent) error
}

// Locker provides expiring mutual exclusion across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type Metrics interface {
	ObserveCycle(workflow, result string, d time.Duration)
	IncTransition(status models.TradeStatus)
	SetBudget(workflow string, budget float64)
	ObserveExternalCall(provider, op string, d time.Duration, err error)
	RecordError(kind string)
}
