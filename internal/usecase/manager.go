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
)

const (
	MsgNoPortfolioMatches = "No portfolio tokens match baseAgents list"
	MsgNoHighRiskSells    = "No high conviction sell recommendations generated"
)

// Manager reviews held tokens and exits HIGH risk positions in full.
type Manager struct {
	agents    drepo.AgentStore
	portfolio service.PortfolioProvider
	generator service.RecommendationGenerator
	submitter *TradeSubmitter
	log       *logger.Logger
	guard     cycleGuard
}

func NewManager(
	agents drepo.AgentStore,
	portfolio service.PortfolioProvider,
	generator service.RecommendationGenerator,
	submitter *TradeSubmitter,
	locker drepo.Locker,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	cycleTimeout, lockTTL time.Duration,
) *Manager {
	return &Manager{
		agents:    agents,
		portfolio: portfolio,
		generator: generator,
		submitter: submitter,
		log:       lgr,
		guard: cycleGuard{
			workflow: "manager",
			locker:   locker,
			metrics:  metrics,
			log:      lgr,
			lockTTL:  lockTTL,
			timeout:  cycleTimeout,
		},
	}
}

func (m *Manager) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	return m.guard.run(ctx, m.cycle)
}

func (m *Manager) cycle(ctx context.Context) (*models.CycleReport, error) {
	agents, err := m.agents.AllAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	if len(agents) == 0 {
		return nil, models.ErrNoAgents
	}

	holdings, err := m.portfolio.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	matches := MatchHoldings(agents, holdings)
	if len(matches) == 0 {
		return emptyReport(MsgNoPortfolioMatches), nil
	}

	recs, err := m.generator.GeneratePortfolioRecommendations(ctx, matches)
	if err != nil {
		return nil, err
	}
	sells := SelectHighRiskSells(recs)
	if len(sells) == 0 {
		r := emptyReport(MsgNoHighRiskSells)
		r.PortfolioMatches = matches
		return r, nil
	}

	byContract := make(map[string]models.PortfolioMatch, len(matches))
	for _, pm := range matches {
		byContract[pm.Holding.ContractAddress] = pm
	}

	report := &models.CycleReport{
		Recommendations:  sells,
		ExecutionResults: make([]models.ExecutionResult, 0, len(sells)),
		PortfolioMatches: matches,
	}
	for _, rec := range sells {
		pm, ok := byContract[models.NormalizeAddress(rec.TokenContract)]
		if !ok {
			report.ExecutionResults = append(report.ExecutionResults,
				models.FailedResult(rec.TokenContract, fmt.Errorf("no matching agent found for trade")))
			continue
		}
		if !pm.Holding.Balance.IsPositive() {
			report.ExecutionResults = append(report.ExecutionResults,
				models.FailedResult(rec.TokenContract, errors.New("no holding to sell")))
			continue
		}
		name := pm.Agent.Name
		if name == "" {
			name = pm.Holding.Symbol
		}
		trade := &models.Trade{
			ContractAddress: pm.Holding.ContractAddress,
			TokenName:       name,
			TradeAction:     models.ActionSell,
			Amount:          pm.Holding.Balance,
			Justification:   rec.Justification,
		}
		report.ExecutionResults = append(report.ExecutionResults, m.submitter.Submit(ctx, trade))
	}
	return report, nil
}

// MatchHoldings pairs holdings with tracked agents by lower-cased contract address,
// in holding order.
func MatchHoldings(agents []models.AgentRecord, holdings []models.Holding) []models.PortfolioMatch {
	byContract := make(map[string]models.AgentRecord, len(agents))
	for _, a := range agents {
		byContract[models.NormalizeAddress(a.ContractAddress)] = a
	}
	out := make([]models.PortfolioMatch, 0)
	for _, h := range holdings {
		h.ContractAddress = models.NormalizeAddress(h.ContractAddress)
		if a, ok := byContract[h.ContractAddress]; ok {
			out = append(out, models.PortfolioMatch{Agent: a, Holding: h})
		}
	}
	return out
}

func emptyReport(msg string) *models.CycleReport {
	return &models.CycleReport{
		Recommendations:  []models.TradeRecommendation{},
		ExecutionResults: []models.ExecutionResult{},
		Message:          msg,
	}
}
