package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/migrations"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/migrate"
)

// ClickHouseStore implements repository.Store on ReplacingMergeTree tables.
// Every write appends a row; reads use FINAL so the newest version wins.
type ClickHouseStore struct {
	client *pkgch.Client
	db     *sql.DB
	now    func() time.Time
}

var _ domrepo.Store = (*ClickHouseStore)(nil)

// NewClickHouseStore applies pending migrations and returns the store.
func NewClickHouseStore(ctx context.Context, client *pkgch.Client) (*ClickHouseStore, error) {
	if err := migrate.Up(ctx, client.DB(), migrate.ClickHouse, migrations.FS); err != nil {
		return nil, err
	}
	return &ClickHouseStore{client: client, db: client.DB(), now: time.Now}, nil
}

func (s *ClickHouseStore) UpsertAgent(ctx context.Context, a *models.AgentRecord) error {
	c, err := encodeAgent(a)
	if err != nil {
		return &models.PersistenceError{Op: "upsert agent", Key: a.ContractAddress, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO agents ("+agentSelectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.contract, c.name, c.twitter, c.metrics3d.String, c.metrics7d.String, c.tweets.String, c.analysis.String, c.updatedAt)
	if err != nil {
		return &models.PersistenceError{Op: "upsert agent", Key: c.contract, Err: err}
	}
	return nil
}

func (s *ClickHouseStore) GetAgent(ctx context.Context, contract string) (*models.AgentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents FINAL WHERE contract_address = ?",
		models.NormalizeAddress(contract))
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (s *ClickHouseStore) LatestAgents(ctx context.Context, limit int) ([]models.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents FINAL ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("latest agents: %w", err)
	}
	return collectAgents(rows)
}

func (s *ClickHouseStore) AllAgents(ctx context.Context) ([]models.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents FINAL ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("all agents: %w", err)
	}
	return collectAgents(rows)
}

func (s *ClickHouseStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	if err := s.writeTrade(ctx, t); err != nil {
		return &models.PersistenceError{Op: "insert trade", Key: t.TradeID, Err: err}
	}
	return nil
}

func (s *ClickHouseStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	current, err := s.GetTrade(ctx, t.TradeID)
	if err != nil {
		return err
	}
	next := *current
	next.Status = t.Status
	next.ExecutionResponse = t.ExecutionResponse
	next.Error = t.Error
	next.UpdatedAt = t.UpdatedAt
	if err := s.writeTrade(ctx, &next); err != nil {
		return &models.PersistenceError{Op: "update trade", Key: t.TradeID, Err: err}
	}
	return nil
}

// writeTrade appends a row versioned by wall-clock nanoseconds.
func (s *ClickHouseStore) writeTrade(ctx context.Context, t *models.Trade) error {
	c := encodeTrade(t)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trades ("+tradeSelectColumns+", version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.id, c.contract, c.name, c.action, c.amount, c.status, c.justification,
		c.response, c.errMsg, c.createdAt, c.updatedAt, uint64(s.now().UnixNano()))
	return err
}

func (s *ClickHouseStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeSelectColumns+" FROM trades FINAL WHERE trade_id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

func (s *ClickHouseStore) ListTrades(ctx context.Context, f models.TradeFilter) ([]models.Trade, error) {
	where, args := tradeFilterClause(f)
	q := "SELECT " + tradeSelectColumns + " FROM trades FINAL" + where + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return collectTrades(rows)
}

func (s *ClickHouseStore) SaveDigest(ctx context.Context, d *models.Digest) error {
	d.ID = s.now().UnixNano()
	if _, err := s.db.ExecContext(ctx, "INSERT INTO tweets (id, content, created_at) VALUES (?, ?, ?)",
		uint64(d.ID), d.Content, d.CreatedAt.UTC()); err != nil {
		return &models.PersistenceError{Op: "insert tweet", Key: "", Err: err}
	}
	return nil
}

func (s *ClickHouseStore) LatestDigests(ctx context.Context, limit int) ([]models.Digest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, content, created_at FROM tweets ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("latest tweets: %w", err)
	}
	defer rows.Close()

	out := make([]models.Digest, 0)
	for rows.Next() {
		var (
			d  models.Digest
			id uint64
		)
		if err := rows.Scan(&id, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.ID = int64(id)
		d.CreatedAt = d.CreatedAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}
