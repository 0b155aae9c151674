package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	SizingNormalize       = "normalize"
	SizingBalanceFraction = "balance_fraction"
)

type TraderConfig struct {
	AgentLimit   int
	Sizing       string
	CycleBudget  decimal.Decimal // ETH per cycle for SizingNormalize
	MaxFraction  decimal.Decimal // share of the ETH balance for SizingBalanceFraction
	CycleTimeout time.Duration
	LockTTL      time.Duration
}

// Trader runs the recommendation-to-dispatch cycle over the most recently refreshed agents.
type Trader struct {
	cfg       TraderConfig
	agents    drepo.AgentStore
	generator service.RecommendationGenerator
	balances  service.BalanceProvider
	portfolio service.PortfolioProvider
	submitter *TradeSubmitter
	metrics   drepo.Metrics
	log       *logger.Logger
	guard     cycleGuard
}

func NewTrader(
	cfg TraderConfig,
	agents drepo.AgentStore,
	generator service.RecommendationGenerator,
	balances service.BalanceProvider,
	portfolio service.PortfolioProvider,
	submitter *TradeSubmitter,
	locker drepo.Locker,
	metrics drepo.Metrics,
	lgr *logger.Logger,
) *Trader {
	if cfg.AgentLimit <= 0 {
		cfg.AgentLimit = 5
	}
	if cfg.Sizing == "" {
		cfg.Sizing = SizingNormalize
	}
	return &Trader{
		cfg:       cfg,
		agents:    agents,
		generator: generator,
		balances:  balances,
		portfolio: portfolio,
		submitter: submitter,
		metrics:   metrics,
		log:       lgr,
		guard: cycleGuard{
			workflow: "trader",
			locker:   locker,
			metrics:  metrics,
			log:      lgr,
			lockTTL:  cfg.LockTTL,
			timeout:  cfg.CycleTimeout,
		},
	}
}

func (t *Trader) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	return t.guard.run(ctx, t.cycle)
}

func (t *Trader) cycle(ctx context.Context) (*models.CycleReport, error) {
	agents, err := t.agents.LatestAgents(ctx, t.cfg.AgentLimit)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	if len(agents) == 0 {
		return nil, models.ErrNoAgents
	}

	recs, err := t.generator.GenerateRecommendations(ctx, agents)
	if err != nil {
		return nil, err
	}

	actionable := SelectActionable(recs)
	report := &models.CycleReport{
		Recommendations:  actionable,
		ExecutionResults: make([]models.ExecutionResult, 0, len(actionable)),
	}
	if len(actionable) == 0 {
		report.Message = "No actionable recommendations generated"
		return report, nil
	}

	sized, sizeErr := t.sizeBuys(ctx, actionable)
	if sizeErr != nil {
		if !hasAction(actionable, models.ActionSell) {
			return nil, sizeErr
		}
		t.log.Warn("BUY sizing failed, continuing with SELLs", logger.Error(sizeErr))
		sized = actionable
	}
	report.Recommendations = sized

	var (
		holdings    map[string]models.Holding
		holdingsErr error
	)
	if hasAction(sized, models.ActionSell) {
		holdings, holdingsErr = t.loadHoldings(ctx)
	}

	for _, rec := range sized {
		var res models.ExecutionResult
		switch {
		case rec.IsBuy() && sizeErr != nil:
			res = models.FailedResult(rec.TokenContract, sizeErr)
		case rec.IsBuy():
			if !rec.Amount.IsPositive() {
				res = models.FailedResult(rec.TokenContract, fmt.Errorf("allocation %s%% rounds to zero", rec.AllocationPercentage.StringFixed(2)))
				break
			}
			res = t.submitter.Submit(ctx, tradeFromRecommendation(rec, rec.Amount))
		default:
			if holdingsErr != nil {
				res = models.FailedResult(rec.TokenContract, holdingsErr)
				break
			}
			h, ok := holdings[models.NormalizeAddress(rec.TokenContract)]
			if !ok || !h.Balance.IsPositive() {
				res = models.FailedResult(rec.TokenContract, errors.New("no holding to sell"))
				break
			}
			res = t.submitter.Submit(ctx, tradeFromRecommendation(rec, h.Balance))
		}
		report.ExecutionResults = append(report.ExecutionResults, res)
	}
	return report, nil
}

// sizeBuys applies the configured sizing strategy. SizeToBudget is the only place
// allocations become amounts.
func (t *Trader) sizeBuys(ctx context.Context, recs []models.TradeRecommendation) ([]models.TradeRecommendation, error) {
	if !hasAction(recs, models.ActionBuy) {
		return recs, nil
	}

	var (
		sized  []models.TradeRecommendation
		budget decimal.Decimal
		err    error
	)
	switch t.cfg.Sizing {
	case SizingBalanceFraction:
		balance, berr := t.balances.ETHBalance(ctx)
		if berr != nil {
			return nil, fmt.Errorf("wallet balance: %w", berr)
		}
		sized, budget, err = SizeToBudget(recs, balance, t.cfg.MaxFraction)
	default:
		normalized, nerr := NormalizeBuyAllocations(recs)
		if nerr != nil {
			return nil, nerr
		}
		sized, budget, err = SizeToBudget(normalized, t.cfg.CycleBudget, decimal.NewFromInt(1))
	}
	if err != nil {
		return nil, err
	}

	f, _ := budget.Float64()
	t.metrics.SetBudget("trader", f)
	t.log.Info("sized BUY allocations",
		logger.String("strategy", t.cfg.Sizing),
		logger.Decimal("budget", budget),
		logger.Decimal("total", TotalBuyAmount(sized)))
	return sized, nil
}

func (t *Trader) loadHoldings(ctx context.Context) (map[string]models.Holding, error) {
	if t.portfolio == nil {
		return nil, errors.New("no portfolio provider configured")
	}
	list, err := t.portfolio.Holdings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Holding, len(list))
	for _, h := range list {
		out[models.NormalizeAddress(h.ContractAddress)] = h
	}
	return out, nil
}

func tradeFromRecommendation(rec models.TradeRecommendation, amount decimal.Decimal) *models.Trade {
	return &models.Trade{
		ContractAddress: rec.TokenContract,
		TokenName:       rec.TokenName,
		TradeAction:     rec.TradeAction,
		Amount:          amount,
		Justification:   rec.Justification,
	}
}

func hasAction(recs []models.TradeRecommendation, action models.TradeAction) bool {
	for _, r := range recs {
		if r.TradeAction == action {
			return true
		}
	}
	return false
}
