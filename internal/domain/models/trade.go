package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeStatus string

const (
	StatusPending    TradeStatus = "PENDING"
	StatusProcessing TradeStatus = "PROCESSING"
	StatusCompleted  TradeStatus = "COMPLETED"
	StatusFailed     TradeStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TradeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next keeps the lifecycle monotonic:
// PENDING -> PROCESSING -> COMPLETED|FAILED, with PENDING -> FAILED for trades that
// were never picked up by an executor.
func (s TradeStatus) CanTransition(next TradeStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Trade is an executable unit of work persisted in the ledger.
type Trade struct {
	TradeID           string          `json:"trade_id"`
	ContractAddress   string          `json:"token_contract"`
	TokenName         string          `json:"name,omitempty"`
	TradeAction       TradeAction     `json:"trade_action"`
	Amount            decimal.Decimal `json:"amount"`
	Status            TradeStatus     `json:"status"`
	Justification     string          `json:"justification"`
	ExecutionResponse *string         `json:"execution_response"`
	Error             *string         `json:"error"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TradeEvent is published on every accepted ledger write.
type TradeEvent struct {
	TradeID         string          `json:"trade_id"`
	ContractAddress string          `json:"token_contract"`
	TradeAction     TradeAction     `json:"trade_action"`
	Amount          decimal.Decimal `json:"amount"`
	Status          TradeStatus     `json:"status"`
	Previous        TradeStatus     `json:"previous,omitempty"`
	Detail          string          `json:"detail,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// NewTradeEvent snapshots a trade right after a write.
func NewTradeEvent(t *Trade, previous TradeStatus) TradeEvent {
	ev := TradeEvent{
		TradeID:         t.TradeID,
		ContractAddress: t.ContractAddress,
		TradeAction:     t.TradeAction,
		Amount:          t.Amount,
		Status:          t.Status,
		Previous:        previous,
		OccurredAt:      t.UpdatedAt,
	}
	switch {
	case t.Error != nil:
		ev.Detail = *t.Error
	case t.ExecutionResponse != nil:
		ev.Detail = *t.ExecutionResponse
	}
	return ev
}

// ExecutionOutcome is the terminal result of one wallet-agent run.
type ExecutionOutcome struct {
	Status   TradeStatus `json:"status"`
	Response string      `json:"response,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// ExecutionResult is the per-trade entry returned to the caller of a cycle.
type ExecutionResult struct {
	Status  string `json:"status"` // pending or failed
	TradeID string `json:"trade_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token_contract,omitempty"`
}

const (
	ResultPending = "pending"
	ResultFailed  = "failed"
)

// AcceptedResult builds the acknowledgement for a dispatched trade.
func AcceptedResult(t *Trade) ExecutionResult {
	return ExecutionResult{
		Status:  ResultPending,
		TradeID: t.TradeID,
		Message: "Trade request accepted",
		Token:   t.ContractAddress,
	}
}

// FailedResult builds the per-trade failure entry.
func FailedResult(token string, err error) ExecutionResult {
	return ExecutionResult{Status: ResultFailed, Error: err.Error(), Token: token}
}

// CycleReport is what a trader or manager cycle returns.
type CycleReport struct {
	Recommendations  []TradeRecommendation `json:"recommendations"`
	ExecutionResults []ExecutionResult     `json:"execution_results"`
	PortfolioMatches []PortfolioMatch      `json:"portfolio_matches,omitempty"`
	Message          string                `json:"message,omitempty"`
}

// TradeFilter narrows ledger listings.
type TradeFilter struct {
	Status TradeStatus
	Before time.Time // created strictly before, zero means no bound
	Limit  int
}
