package llm

import (
	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// recommendationDocument is the JSON shape the generator is asked to return.
type recommendationDocument struct {
	Recommendations []recommendationItem `json:"recommendations" validate:"dive"`
}

type recommendationItem struct {
	Trade         tradeItem `json:"trade"`
	RiskLevel     string    `json:"risk_level" validate:"required,oneof=HIGH MEDIUM LOW"`
	Urgency       string    `json:"urgency" validate:"required,oneof=IMMEDIATE 'NEXT 24H' MONITOR"`
	RiskFactors   []string  `json:"risk_factors" validate:"min=1,max=3"`
	Justification string    `json:"justification"`
}

type tradeItem struct {
	Name                 string  `json:"name"`
	TokenContract        string  `json:"token_contract" validate:"required"`
	TradeAction          string  `json:"trade_action" validate:"required,oneof=BUY SELL HOLD"`
	ConvictionLevel      string  `json:"conviction_level" validate:"required,oneof=HIGH MEDIUM LOW"`
	TimeHorizon          string  `json:"time_horizon" validate:"required,oneof=SHORT MEDIUM LONG"`
	AllocationPercentage float64 `json:"allocation_percentage" validate:"gte=0,lte=100"`
	// EthAmount is accepted for compatibility and ignored; amounts are sized locally.
	EthAmount string `json:"eth_amount"`
}

func (d *recommendationDocument) toModels() []models.TradeRecommendation {
	out := make([]models.TradeRecommendation, 0, len(d.Recommendations))
	for _, r := range d.Recommendations {
		out = append(out, models.TradeRecommendation{
			TokenName:            r.Trade.Name,
			TokenContract:        models.NormalizeAddress(r.Trade.TokenContract),
			TradeAction:          models.TradeAction(r.Trade.TradeAction),
			ConvictionLevel:      models.Conviction(r.Trade.ConvictionLevel),
			TimeHorizon:          models.TimeHorizon(r.Trade.TimeHorizon),
			AllocationPercentage: decimal.NewFromFloat(r.Trade.AllocationPercentage),
			Justification:        r.Justification,
			RiskLevel:            models.RiskLevel(r.RiskLevel),
			Urgency:              models.Urgency(r.Urgency),
			RiskFactors:          r.RiskFactors,
		})
	}
	return out
}

// analysisDocument mirrors models.Analysis with defaults for omitted scores.
type analysisDocument struct {
	ExecutiveSummary  string `json:"executiveSummary" validate:"required"`
	TechnicalAnalysis struct {
		Score           *float64 `json:"score" default:"5" validate:"required,gte=0,lte=10"`
		PriceAction     string   `json:"priceAction" validate:"required"`
		VolumeAnalysis  string   `json:"volumeAnalysis" validate:"required"`
		MarketStructure string   `json:"marketStructure" validate:"required"`
	} `json:"technicalAnalysis"`
	SocialMetrics struct {
		Score             *float64 `json:"score" default:"5" validate:"required,gte=0,lte=10"`
		SentimentAnalysis string   `json:"sentimentAnalysis" validate:"required"`
		EngagementQuality string   `json:"engagementQuality" validate:"required"`
		SocialMomentum    string   `json:"socialMomentum" validate:"required"`
	} `json:"socialMetrics"`
	TradingRecommendation struct {
		Position    string `json:"position" validate:"required,oneof=BUY SELL HOLD"`
		Conviction  string `json:"conviction" validate:"required,oneof=HIGH MEDIUM LOW"`
		TimeHorizon string `json:"timeHorizon" validate:"required,oneof=SHORT MEDIUM LONG"`
	} `json:"tradingRecommendation"`
	SupportingRationale []string `json:"supportingRationale" validate:"required,min=1,dive,required"`
}

func (d *analysisDocument) toModel() *models.Analysis {
	return &models.Analysis{
		ExecutiveSummary: d.ExecutiveSummary,
		TechnicalAnalysis: models.TechnicalAnalysis{
			Score:           *d.TechnicalAnalysis.Score,
			PriceAction:     d.TechnicalAnalysis.PriceAction,
			VolumeAnalysis:  d.TechnicalAnalysis.VolumeAnalysis,
			MarketStructure: d.TechnicalAnalysis.MarketStructure,
		},
		SocialMetrics: models.SocialMetrics{
			Score:             *d.SocialMetrics.Score,
			SentimentAnalysis: d.SocialMetrics.SentimentAnalysis,
			EngagementQuality: d.SocialMetrics.EngagementQuality,
			SocialMomentum:    d.SocialMetrics.SocialMomentum,
		},
		TradingRecommendation: models.AnalysisPosition{
			Position:    models.TradeAction(d.TradingRecommendation.Position),
			Conviction:  models.Conviction(d.TradingRecommendation.Conviction),
			TimeHorizon: models.TimeHorizon(d.TradingRecommendation.TimeHorizon),
		},
		SupportingRationale: d.SupportingRationale,
	}
}

type digestDocument struct {
	Tweet string `json:"tweet" validate:"required"`
}
