package models

import (
	"strings"
	"time"
)

// Interval names the lookback window used by the market data provider.
type Interval string

const (
	Interval3Days Interval = "_3Days"
	Interval7Days Interval = "_7Days"
)

// IntervalMetrics is one lookback window of market and social statistics for a token.
// Delta fields are percentages and may be negative.
type IntervalMetrics struct {
	AgentName        string   `json:"agentName"`
	TwitterUsernames []string `json:"twitterUsernames"`

	Price                               float64 `json:"price"`
	PriceDeltaPercent                   float64 `json:"priceDeltaPercent"`
	MarketCap                           float64 `json:"marketCap"`
	MarketCapDeltaPercent               float64 `json:"marketCapDeltaPercent"`
	Volume24Hours                       float64 `json:"volume24Hours"`
	Volume24HoursDeltaPercent           float64 `json:"volume24HoursDeltaPercent"`
	Mindshare                           float64 `json:"mindshare"`
	MindshareDeltaPercent               float64 `json:"mindshareDeltaPercent"`
	Liquidity                           float64 `json:"liquidity"`
	HoldersCount                        float64 `json:"holdersCount"`
	HoldersCountDeltaPercent            float64 `json:"holdersCountDeltaPercent"`
	AverageImpressionsCount             float64 `json:"averageImpressionsCount"`
	AverageImpressionsCountDeltaPercent float64 `json:"averageImpressionsCountDeltaPercent"`
	AverageEngagementsCount             float64 `json:"averageEngagementsCount"`
	AverageEngagementsCountDeltaPercent float64 `json:"averageEngagementsCountDeltaPercent"`
	FollowersCount                      float64 `json:"followersCount"`
	SmartFollowersCount                 float64 `json:"smartFollowersCount"`

	PriceTrend        string `json:"priceTrend"`
	MarketCapTrend    string `json:"marketCapTrend"`
	VolumeTrend       string `json:"volumeTrend"`
	MindshareTrend    string `json:"mindshareTrend"`
	ImpressionsTrend  string `json:"impressionsTrend"`
	EngagementsTrend  string `json:"engagementsTrend"`
	SmartFollowsTrend string `json:"smartFollowsTrend"`
}

// PrimaryHandle returns the first twitter username reported for the window.
func (m *IntervalMetrics) PrimaryHandle() string {
	if m == nil || len(m.TwitterUsernames) == 0 {
		return ""
	}
	return strings.TrimPrefix(m.TwitterUsernames[0], "@")
}

// PostSummary is a condensed social post used as model context.
type PostSummary struct {
	Text                  string    `json:"text"`
	EngagementsCount      int64     `json:"engagementsCount"`
	SmartEngagementPoints int64     `json:"smartEngagementPoints"`
	CreatedAt             time.Time `json:"createdAt,omitempty"`
}

// AgentRecord is the stored snapshot for one tracked token.
type AgentRecord struct {
	ContractAddress string           `json:"contract_address"`
	Name            string           `json:"name"`
	TwitterHandle   string           `json:"twitter"`
	Metrics3Day     *IntervalMetrics `json:"_3Days"`
	Metrics7Day     *IntervalMetrics `json:"_7Days"`
	RecentPosts     []PostSummary    `json:"tweets"`
	Analysis        *Analysis        `json:"analysis,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NormalizeAddress lower-cases and trims a contract address so it can be used as a key.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Analysis is the structured per-token assessment produced by the analyst model.
type Analysis struct {
	ExecutiveSummary      string            `json:"executiveSummary" validate:"required"`
	TechnicalAnalysis     TechnicalAnalysis `json:"technicalAnalysis"`
	SocialMetrics         SocialMetrics     `json:"socialMetrics"`
	TradingRecommendation AnalysisPosition  `json:"tradingRecommendation"`
	SupportingRationale   []string          `json:"supportingRationale" validate:"required,min=1,dive,required"`
}

type TechnicalAnalysis struct {
	Score           float64 `json:"score" validate:"gte=0,lte=10"`
	PriceAction     string  `json:"priceAction" validate:"required"`
	VolumeAnalysis  string  `json:"volumeAnalysis" validate:"required"`
	MarketStructure string  `json:"marketStructure" validate:"required"`
}

type SocialMetrics struct {
	Score             float64 `json:"score" validate:"gte=0,lte=10"`
	SentimentAnalysis string  `json:"sentimentAnalysis" validate:"required"`
	EngagementQuality string  `json:"engagementQuality" validate:"required"`
	SocialMomentum    string  `json:"socialMomentum" validate:"required"`
}

type AnalysisPosition struct {
	Position    TradeAction `json:"position" validate:"required,oneof=BUY SELL HOLD"`
	Conviction  Conviction  `json:"conviction" validate:"required,oneof=HIGH MEDIUM LOW"`
	TimeHorizon TimeHorizon `json:"timeHorizon" validate:"required,oneof=SHORT MEDIUM LONG"`
}
