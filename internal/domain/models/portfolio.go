package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one token balance held by the trading wallet.
type Holding struct {
	ContractAddress string          `json:"contract_address"`
	Symbol          string          `json:"symbol"`
	Balance         decimal.Decimal `json:"balance"`
	BalanceUSD      decimal.Decimal `json:"balanceUSD"`
}

// PortfolioMatch pairs a holding with the tracked agent for the same contract.
type PortfolioMatch struct {
	Agent   AgentRecord `json:"agent"`
	Holding Holding     `json:"holding"`
}

// Digest is a short market update generated from recent agents and trades.
type Digest struct {
	ID        int64     `json:"id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
