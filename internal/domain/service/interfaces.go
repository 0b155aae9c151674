package service

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
)

// MarketDataGateway fetches market and social data for a token.
type MarketDataGateway interface {
	FetchIntervalMetrics(ctx context.Context, contract string, interval models.Interval) (*models.IntervalMetrics, error)
	FetchRecentPosts(ctx context.Context, handle string, from, to time.Time) ([]models.PostSummary, error)
	// FetchAgent fetches both intervals concurrently and returns a record with metrics,
	// name and handle set. The 7-day interval is required.
	FetchAgent(ctx context.Context, contract string) (*models.AgentRecord, error)
}

// RecommendationGenerator turns agent snapshots into trade recommendations.
type RecommendationGenerator interface {
	GenerateRecommendations(ctx context.Context, agents []models.AgentRecord) ([]models.TradeRecommendation, error)
	GeneratePortfolioRecommendations(ctx context.Context, matches []models.PortfolioMatch) ([]models.TradeRecommendation, error)
}

type Analyst interface {
	Analyze(ctx context.Context, agent *models.AgentRecord) (*models.Analysis, error)
}

type DigestWriter interface {
	WriteDigest(ctx context.Context, agents []models.AgentRecord, trades []models.Trade) (string, error)
}

type PortfolioProvider interface {
	Holdings(ctx context.Context) ([]models.Holding, error)
}

type BalanceProvider interface {
	ETHBalance(ctx context.Context) (decimal.Decimal, error)
}

// WalletAgent executes a natural-language instruction and streams tagged chunks.
// The reader must be drained until io.EOF and closed by the caller.
type WalletAgent interface {
	Stream(ctx context.Context, instruction string) (*schema.StreamReader[models.AgentChunk], error)
}
