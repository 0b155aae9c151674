package llm

import (
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/util"
)

const recommendationFormat = `Respond with a single JSON object and nothing else:
{"recommendations":[{"trade":{"name":string,"token_contract":string,"trade_action":"BUY"|"SELL"|"HOLD","conviction_level":"HIGH"|"MEDIUM"|"LOW","time_horizon":"SHORT"|"MEDIUM"|"LONG","allocation_percentage":number 0-100,"eth_amount":string},"risk_level":"HIGH"|"MEDIUM"|"LOW","urgency":"IMMEDIATE"|"NEXT 24H"|"MONITOR","risk_factors":[1 to 3 strings],"justification":string}]}`

const traderSystemPrompt = `You are a portfolio manager for AI agent tokens on the Base network.
Evaluate each token on market performance (price, volume, liquidity, market cap trajectory),
social signals (mindshare, engagement quality, smart follower activity) and risk
(liquidity depth, concentration, market structure). Recommendations must be data driven.
Never recommend a BUY for more than 20% of available ETH.

` + recommendationFormat

const portfolioSystemPrompt = `You are a risk manager reviewing tokens the wallet already holds.
For every holding decide whether to keep it or exit. Recommend SELL with risk_level HIGH only
when the metrics show deteriorating price action, collapsing volume or liquidity, or fading
social momentum. Use the token_contract exactly as given.

` + recommendationFormat

const analystSystemPrompt = `You are a crypto analyst producing a structured assessment of one AI agent token
from its 3-day and 7-day metrics and its recent posts. Respond with a single JSON object and nothing else:
{"executiveSummary":string,
 "technicalAnalysis":{"score":number 0-10,"priceAction":string,"volumeAnalysis":string,"marketStructure":string},
 "socialMetrics":{"score":number 0-10,"sentimentAnalysis":string,"engagementQuality":string,"socialMomentum":string},
 "tradingRecommendation":{"position":"BUY"|"SELL"|"HOLD","conviction":"HIGH"|"MEDIUM"|"LOW","timeHorizon":"SHORT"|"MEDIUM"|"LONG"},
 "supportingRationale":[at least one string]}`

const digestSystemPrompt = `You write short market updates about AI agent tokens and recent trading activity.
Highlight significant price moves, volume and sentiment. Use cashtags for token names and keep it
within 280 characters. Respond with a single JSON object and nothing else: {"tweet":string}`

// metricsFor prefers the 3-day window and falls back to the 7-day one.
func metricsFor(a models.AgentRecord) *models.IntervalMetrics {
	if a.Metrics3Day != nil {
		return a.Metrics3Day
	}
	return a.Metrics7Day
}

func writeMetrics(b *strings.Builder, label string, m *models.IntervalMetrics) {
	if m == nil {
		fmt.Fprintf(b, "%s: unavailable\n", label)
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	fmt.Fprintf(b, "- Price: $%.5f (%.2f%%)\n", m.Price, m.PriceDeltaPercent)
	fmt.Fprintf(b, "- Market Cap: $%.2fM (%.2f%%)\n", m.MarketCap/1e6, m.MarketCapDeltaPercent)
	fmt.Fprintf(b, "- Volume 24h: $%.2fM (%.2f%%)\n", m.Volume24Hours/1e6, m.Volume24HoursDeltaPercent)
	fmt.Fprintf(b, "- Mindshare: %.2f%% (%.2f%%)\n", m.Mindshare, m.MindshareDeltaPercent)
	fmt.Fprintf(b, "- Liquidity: $%.2fM\n", m.Liquidity/1e6)
	fmt.Fprintf(b, "- Holders: %.0f (%.2f%%)\n", m.HoldersCount, m.HoldersCountDeltaPercent)
	fmt.Fprintf(b, "- Followers: %.0f, smart followers: %.0f\n", m.FollowersCount, m.SmartFollowersCount)
	fmt.Fprintf(b, "- Trends: price %s, volume %s, mindshare %s, market cap %s\n",
		m.PriceTrend, m.VolumeTrend, m.MindshareTrend, m.MarketCapTrend)
}

func writeAgent(b *strings.Builder, a models.AgentRecord) {
	fmt.Fprintf(b, "Agent: %s\nContract: %s\n", a.Name, a.ContractAddress)
	if a.TwitterHandle != "" {
		fmt.Fprintf(b, "Twitter: @%s\n", a.TwitterHandle)
	}
	writeMetrics(b, "3-Day Metrics", metricsFor(a))
	if a.Analysis != nil {
		fmt.Fprintf(b, "Analyst view: %s (%s conviction, %s horizon). %s\n",
			a.Analysis.TradingRecommendation.Position,
			a.Analysis.TradingRecommendation.Conviction,
			a.Analysis.TradingRecommendation.TimeHorizon,
			a.Analysis.ExecutiveSummary)
	}
}

func tradePrompt(agents []models.AgentRecord) string {
	var b strings.Builder
	b.WriteString("Analyze these tokens and recommend trades:\n")
	for _, a := range agents {
		b.WriteString("\n")
		writeAgent(&b, a)
	}
	return b.String()
}

func portfolioPrompt(matches []models.PortfolioMatch) string {
	var b strings.Builder
	b.WriteString("Review these held positions:\n")
	for _, m := range matches {
		b.WriteString("\n")
		writeAgent(&b, m.Agent)
		fmt.Fprintf(&b, "Held: %s %s ($%s)\n", m.Holding.Balance, m.Holding.Symbol, m.Holding.BalanceUSD.StringFixed(2))
	}
	return b.String()
}

// FormatPost renders one post as analyst context.
func FormatPost(p models.PostSummary) string {
	return fmt.Sprintf("Tweet: \"%s\" has %d engagements and %d smart engagements.", p.Text, p.EngagementsCount, p.SmartEngagementPoints)
}

func analysisPrompt(a *models.AgentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent: %s\nContract: %s\nTwitter: @%s\n\n", a.Name, a.ContractAddress, a.TwitterHandle)
	writeMetrics(&b, "7-Day Metrics", a.Metrics7Day)
	b.WriteString("\n")
	writeMetrics(&b, "3-Day Metrics", a.Metrics3Day)
	b.WriteString("\nRecent posts:\n")
	if len(a.RecentPosts) == 0 {
		b.WriteString("none\n")
	}
	for _, p := range a.RecentPosts {
		b.WriteString(FormatPost(p))
		b.WriteString("\n")
	}
	return b.String()
}

func digestPrompt(agents []models.AgentRecord, trades []models.Trade) string {
	var b strings.Builder
	b.WriteString("Write an update from this data.\n\nAgents:\n")
	for _, a := range agents {
		m := metricsFor(a)
		if m == nil {
			fmt.Fprintf(&b, "- %s\n", a.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s: mindshare %.2f%% (%+.2f%%), market cap $%.2fM (%+.2f%%), volume 24h $%.2fM\n",
			a.Name, m.Mindshare, m.MindshareDeltaPercent, m.MarketCap/1e6, m.MarketCapDeltaPercent, m.Volume24Hours/1e6)
	}
	b.WriteString("\nRecent trades:\n")
	for _, t := range trades {
		name := t.TokenName
		if name == "" {
			name = t.ContractAddress
		}
		fmt.Fprintf(&b, "- %s %s %s ETH-equivalent, status %s: %s\n",
			t.TradeAction, name, t.Amount, t.Status, util.Truncate(t.Justification, 140))
	}
	return b.String()
}
