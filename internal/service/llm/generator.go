package llm

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generator implements every model-backed step: trade and portfolio recommendations,
// per-token analysis and the market digest.
type Generator struct {
	model   model.BaseChatModel
	metrics repository.Metrics
	log     *logger.Logger
}

var (
	_ service.RecommendationGenerator = (*Generator)(nil)
	_ service.Analyst                 = (*Generator)(nil)
	_ service.DigestWriter            = (*Generator)(nil)
)

func NewGenerator(cm model.BaseChatModel, metrics repository.Metrics, lgr *logger.Logger) *Generator {
	return &Generator{model: cm, metrics: metrics, log: lgr}
}

func (g *Generator) GenerateRecommendations(ctx context.Context, agents []models.AgentRecord) ([]models.TradeRecommendation, error) {
	reply, err := g.complete(ctx, "recommendations", traderSystemPrompt, tradePrompt(agents))
	if err != nil {
		return nil, err
	}
	doc, err := decodeReply[recommendationDocument]("trade_recommendations", reply)
	if err != nil {
		g.log.Warn("recommendations rejected", logger.Error(err))
		return nil, err
	}
	return doc.toModels(), nil
}

func (g *Generator) GeneratePortfolioRecommendations(ctx context.Context, matches []models.PortfolioMatch) ([]models.TradeRecommendation, error) {
	reply, err := g.complete(ctx, "portfolio", portfolioSystemPrompt, portfolioPrompt(matches))
	if err != nil {
		return nil, err
	}
	doc, err := decodeReply[recommendationDocument]("trade_recommendations", reply)
	if err != nil {
		g.log.Warn("portfolio recommendations rejected", logger.Error(err))
		return nil, err
	}
	return doc.toModels(), nil
}

func (g *Generator) Analyze(ctx context.Context, agent *models.AgentRecord) (*models.Analysis, error) {
	reply, err := g.complete(ctx, "analysis", analystSystemPrompt, analysisPrompt(agent))
	if err != nil {
		return nil, err
	}
	doc, err := decodeReply[analysisDocument]("agent_analysis", reply)
	if err != nil {
		g.log.Warn("analysis rejected", logger.String("contract", agent.ContractAddress), logger.Error(err))
		return nil, err
	}
	return doc.toModel(), nil
}

func (g *Generator) WriteDigest(ctx context.Context, agents []models.AgentRecord, trades []models.Trade) (string, error) {
	reply, err := g.complete(ctx, "digest", digestSystemPrompt, digestPrompt(agents, trades))
	if err != nil {
		return "", err
	}
	doc, err := decodeReply[digestDocument]("digest", reply)
	if err != nil {
		return "", err
	}
	return doc.Tweet, nil
}

func (g *Generator) complete(ctx context.Context, op, system, prompt string) (string, error) {
	start := time.Now()
	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	})
	if g.metrics != nil {
		g.metrics.ObserveExternalCall("llm", op, time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", op, err)
	}
	g.log.Debug("model reply", logger.String("op", op), logger.Int("chars", len(msg.Content)))
	return msg.Content, nil
}
