package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// agentColumns is an AgentRecord flattened to its stored shape: nested values as JSON text.
type agentColumns struct {
	contract  string
	name      string
	twitter   string
	metrics3d sql.NullString
	metrics7d sql.NullString
	tweets    sql.NullString
	analysis  sql.NullString
	updatedAt time.Time
}

func encodeAgent(a *models.AgentRecord) (agentColumns, error) {
	cols := agentColumns{
		contract:  models.NormalizeAddress(a.ContractAddress),
		name:      a.Name,
		twitter:   a.TwitterHandle,
		updatedAt: a.UpdatedAt.UTC(),
	}
	var err error
	if cols.metrics3d, err = jsonColumn(a.Metrics3Day, a.Metrics3Day == nil); err != nil {
		return cols, err
	}
	if cols.metrics7d, err = jsonColumn(a.Metrics7Day, a.Metrics7Day == nil); err != nil {
		return cols, err
	}
	if cols.tweets, err = jsonColumn(a.RecentPosts, a.RecentPosts == nil); err != nil {
		return cols, err
	}
	if cols.analysis, err = jsonColumn(a.Analysis, a.Analysis == nil); err != nil {
		return cols, err
	}
	return cols, nil
}

func (c agentColumns) decode() (*models.AgentRecord, error) {
	a := &models.AgentRecord{
		ContractAddress: c.contract,
		Name:            c.name,
		TwitterHandle:   c.twitter,
		UpdatedAt:       c.updatedAt.UTC(),
	}
	if err := fromJSONColumn(c.metrics3d, &a.Metrics3Day); err != nil {
		return nil, fmt.Errorf("decode metrics_3d: %w", err)
	}
	if err := fromJSONColumn(c.metrics7d, &a.Metrics7Day); err != nil {
		return nil, fmt.Errorf("decode metrics_7d: %w", err)
	}
	if err := fromJSONColumn(c.tweets, &a.RecentPosts); err != nil {
		return nil, fmt.Errorf("decode tweets: %w", err)
	}
	if err := fromJSONColumn(c.analysis, &a.Analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return a, nil
}

func jsonColumn(v interface{}, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func fromJSONColumn(col sql.NullString, dst interface{}) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

// tradeColumns is a Trade in its stored shape.
type tradeColumns struct {
	id            string
	contract      string
	name          string
	action        string
	amount        string
	status        string
	justification string
	response      sql.NullString
	errMsg        sql.NullString
	createdAt     time.Time
	updatedAt     time.Time
}

func encodeTrade(t *models.Trade) tradeColumns {
	return tradeColumns{
		id:            t.TradeID,
		contract:      models.NormalizeAddress(t.ContractAddress),
		name:          t.TokenName,
		action:        string(t.TradeAction),
		amount:        t.Amount.String(),
		status:        string(t.Status),
		justification: t.Justification,
		response:      nullString(t.ExecutionResponse),
		errMsg:        nullString(t.Error),
		createdAt:     t.CreatedAt.UTC(),
		updatedAt:     t.UpdatedAt.UTC(),
	}
}

func (c tradeColumns) decode() (*models.Trade, error) {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", c.amount, err)
	}
	t := &models.Trade{
		TradeID:         c.id,
		ContractAddress: c.contract,
		TokenName:       c.name,
		TradeAction:     models.TradeAction(c.action),
		Amount:          amount,
		Status:          models.TradeStatus(c.status),
		Justification:   c.justification,
		CreatedAt:       c.createdAt.UTC(),
		UpdatedAt:       c.updatedAt.UTC(),
	}
	if c.response.Valid {
		s := c.response.String
		t.ExecutionResponse = &s
	}
	if c.errMsg.Valid {
		s := c.errMsg.String
		t.Error = &s
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

const (
	agentSelectColumns = "contract_address, name, twitter, metrics_3d, metrics_7d, tweets, analysis, updated_at"
	tradeSelectColumns = "trade_id, token_contract, token_name, trade_action, amount, status, justification, execution_response, error, created_at, updated_at"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(s scanner) (*models.AgentRecord, error) {
	var c agentColumns
	if err := s.Scan(&c.contract, &c.name, &c.twitter, &c.metrics3d, &c.metrics7d, &c.tweets, &c.analysis, &c.updatedAt); err != nil {
		return nil, err
	}
	return c.decode()
}

func scanTrade(s scanner) (*models.Trade, error) {
	var c tradeColumns
	if err := s.Scan(&c.id, &c.contract, &c.name, &c.action, &c.amount, &c.status, &c.justification,
		&c.response, &c.errMsg, &c.createdAt, &c.updatedAt); err != nil {
		return nil, err
	}
	return c.decode()
}

func collectAgents(rows *sql.Rows) ([]models.AgentRecord, error) {
	defer rows.Close()
	out := make([]models.AgentRecord, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func collectTrades(rows *sql.Rows) ([]models.Trade, error) {
	defer rows.Close()
	out := make([]models.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
