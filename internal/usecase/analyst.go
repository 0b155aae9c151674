package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"
)

// AnalystWorkflow refreshes one tracked token: market data, recent posts and a model
// analysis, stored as a single upsert.
type AnalystWorkflow struct {
	gateway     service.MarketDataGateway
	analyst     service.Analyst
	agents      drepo.AgentStore
	metrics     drepo.Metrics
	log         *logger.Logger
	contracts   []string
	postsWindow time.Duration
	now         func() time.Time
	pick        func(n int) int
}

func NewAnalystWorkflow(
	gateway service.MarketDataGateway,
	analyst service.Analyst,
	agents drepo.AgentStore,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	contracts []string,
	postsWindow time.Duration,
) *AnalystWorkflow {
	if postsWindow <= 0 {
		postsWindow = 48 * time.Hour
	}
	return &AnalystWorkflow{
		gateway:     gateway,
		analyst:     analyst,
		agents:      agents,
		metrics:     metrics,
		log:         lgr,
		contracts:   contracts,
		postsWindow: postsWindow,
		now:         time.Now,
		pick:        rand.IntN,
	}
}

// Refresh analyzes contract, or a random configured contract when contract is empty.
// Nothing is written unless every step succeeds.
func (w *AnalystWorkflow) Refresh(ctx context.Context, contract string) (*models.AgentRecord, error) {
	start := w.now()
	rec, err := w.refresh(ctx, contract)
	result := cycleResult(err)
	if errors.Is(err, models.ErrMissingHandle) {
		result = "missing_handle"
	}
	w.metrics.ObserveCycle("analyst", result, w.now().Sub(start))
	return rec, err
}

func (w *AnalystWorkflow) refresh(ctx context.Context, contract string) (*models.AgentRecord, error) {
	if contract == "" {
		if len(w.contracts) == 0 {
			return nil, errors.New("no analyst contracts configured")
		}
		contract = w.contracts[w.pick(len(w.contracts))]
	}
	contract = models.NormalizeAddress(contract)
	log := w.log.With(logger.String("contract", contract))

	rec, err := w.gateway.FetchAgent(ctx, contract)
	if err != nil {
		return nil, err
	}
	if rec.TwitterHandle == "" {
		return nil, fmt.Errorf("%w for %s", models.ErrMissingHandle, contract)
	}

	to := w.now().UTC()
	posts, err := w.gateway.FetchRecentPosts(ctx, rec.TwitterHandle, to.Add(-w.postsWindow), to)
	if err != nil {
		return nil, err
	}
	rec.RecentPosts = posts

	analysis, err := w.analyst.Analyze(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.Analysis = analysis
	rec.UpdatedAt = w.now().UTC()

	if err := w.agents.UpsertAgent(ctx, rec); err != nil {
		return nil, err
	}
	log.Info("agent refreshed",
		logger.String("name", rec.Name),
		logger.Int("posts", len(posts)),
		logger.String("position", string(analysis.TradingRecommendation.Position)))
	return rec, nil
}
