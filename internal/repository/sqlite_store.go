package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/migrations"
	"TradePilot/pkg/migrate"
	"TradePilot/pkg/sqlite"
)

// SQLiteStore implements repository.Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ domrepo.Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens path and applies pending migrations.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrate.Up(ctx, db, migrate.SQLite, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpsertAgent(ctx context.Context, a *models.AgentRecord) error {
	c, err := encodeAgent(a)
	if err != nil {
		return &models.PersistenceError{Op: "upsert agent", Key: a.ContractAddress, Err: err}
	}
	const q = `
		INSERT INTO agents (contract_address, name, twitter, metrics_3d, metrics_7d, tweets, analysis, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (contract_address) DO UPDATE SET
			name = excluded.name,
			twitter = excluded.twitter,
			metrics_3d = excluded.metrics_3d,
			metrics_7d = excluded.metrics_7d,
			tweets = excluded.tweets,
			analysis = excluded.analysis,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, c.contract, c.name, c.twitter, c.metrics3d, c.metrics7d, c.tweets, c.analysis, c.updatedAt); err != nil {
		return &models.PersistenceError{Op: "upsert agent", Key: c.contract, Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetAgent(ctx context.Context, contract string) (*models.AgentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents WHERE contract_address = ?",
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

func (s *SQLiteStore) LatestAgents(ctx context.Context, limit int) ([]models.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("latest agents: %w", err)
	}
	return collectAgents(rows)
}

func (s *SQLiteStore) AllAgents(ctx context.Context) ([]models.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+agentSelectColumns+" FROM agents ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("all agents: %w", err)
	}
	return collectAgents(rows)
}

func (s *SQLiteStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	c := encodeTrade(t)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trades ("+tradeSelectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.id, c.contract, c.name, c.action, c.amount, c.status, c.justification, c.response, c.errMsg, c.createdAt, c.updatedAt)
	if err != nil {
		return &models.PersistenceError{Op: "insert trade", Key: t.TradeID, Err: err}
	}
	return nil
}

func (s *SQLiteStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	c := encodeTrade(t)
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET status = ?, execution_response = ?, error = ?, updated_at = ?
		WHERE trade_id = ?`,
		c.status, c.response, c.errMsg, c.updatedAt, c.id)
	if err != nil {
		return &models.PersistenceError{Op: "update trade", Key: t.TradeID, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeSelectColumns+" FROM trades WHERE trade_id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTrades(ctx context.Context, f models.TradeFilter) ([]models.Trade, error) {
	where, args := tradeFilterClause(f)
	q := "SELECT " + tradeSelectColumns + " FROM trades" + where + " ORDER BY created_at DESC"
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

func (s *SQLiteStore) SaveDigest(ctx context.Context, d *models.Digest) error {
	res, err := s.db.ExecContext(ctx, "INSERT INTO tweets (content, created_at) VALUES (?, ?)", d.Content, d.CreatedAt.UTC())
	if err != nil {
		return &models.PersistenceError{Op: "insert tweet", Key: "", Err: err}
	}
	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}
	return nil
}

func (s *SQLiteStore) LatestDigests(ctx context.Context, limit int) ([]models.Digest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, content, created_at FROM tweets ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("latest tweets: %w", err)
	}
	defer rows.Close()

	out := make([]models.Digest, 0)
	for rows.Next() {
		var d models.Digest
		if err := rows.Scan(&d.ID, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.CreatedAt = d.CreatedAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func tradeFilterClause(f models.TradeFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Before.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.Before.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
