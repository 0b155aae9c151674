package usecase

import (
	"context"
	"errors"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// cycleGuard serializes one workflow across processes and bounds its duration.
type cycleGuard struct {
	workflow string
	locker   drepo.Locker
	metrics  drepo.Metrics
	log      *logger.Logger
	lockTTL  time.Duration
	timeout  time.Duration
}

func (g cycleGuard) run(ctx context.Context, fn func(context.Context) (*models.CycleReport, error)) (*models.CycleReport, error) {
	key := "cycle:" + g.workflow
	ttl := g.lockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	token, ok, err := g.locker.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		g.metrics.ObserveCycle(g.workflow, "skipped", 0)
		return nil, models.ErrCycleInProgress
	}
	defer func() {
		if err := g.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			g.log.Warn("release cycle lock", logger.String("workflow", g.workflow), logger.Error(err))
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := fn(ctx)
	g.metrics.ObserveCycle(g.workflow, cycleResult(err), time.Since(start))
	if err != nil {
		g.log.Error("cycle failed", logger.String("workflow", g.workflow), logger.Error(err))
		return nil, err
	}
	g.log.Info("cycle finished",
		logger.String("workflow", g.workflow),
		logger.Int("recommendations", len(report.Recommendations)),
		logger.Int("dispatched", countPending(report.ExecutionResults)),
		logger.Duration("took", time.Since(start)))
	return report, nil
}

func cycleResult(err error) string {
	var (
		dp *models.DataProviderError
		sv *models.SchemaValidationError
		ai *models.AllocationInvariantError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrNoAgents):
		return "no_agents"
	case errors.As(err, &dp):
		return "data_provider"
	case errors.As(err, &sv):
		return "schema_validation"
	case errors.As(err, &ai):
		return "allocation"
	default:
		return "error"
	}
}

func countPending(results []models.ExecutionResult) int {
	n := 0
	for _, r := range results {
		if r.Status == models.ResultPending {
			n++
		}
	}
	return n
}
