package models

import "github.com/shopspring/decimal"

type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "SHORT"
	HorizonMedium TimeHorizon = "MEDIUM"
	HorizonLong   TimeHorizon = "LONG"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyNext24H   Urgency = "NEXT 24H"
	UrgencyMonitor   Urgency = "MONITOR"
)

// TradeRecommendation is one candidate trade proposed by the recommendation generator.
// Amount stays zero until the allocation is sized against a budget.
type TradeRecommendation struct {
	TokenName            string          `json:"token_name"`
	TokenContract        string          `json:"token_contract"`
	TradeAction          TradeAction     `json:"trade_action"`
	ConvictionLevel      Conviction      `json:"conviction_level"`
	TimeHorizon          TimeHorizon     `json:"time_horizon"`
	AllocationPercentage decimal.Decimal `json:"allocation_percentage"`
	Justification        string          `json:"justification"`
	RiskLevel            RiskLevel       `json:"risk_level,omitempty"`
	Urgency              Urgency         `json:"urgency,omitempty"`
	RiskFactors          []string        `json:"risk_factors,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
}

// IsBuy reports whether the recommendation takes part in BUY allocation.
func (r TradeRecommendation) IsBuy() bool { return r.TradeAction == ActionBuy }
