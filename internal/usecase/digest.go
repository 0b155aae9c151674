package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"
)

const digestSampleSize = 5

// DigestWorkflow writes a short market update from the latest agents and trades.
type DigestWorkflow struct {
	agents  drepo.AgentStore
	trades  drepo.TradeStore
	digests drepo.DigestStore
	writer  service.DigestWriter
	log     *logger.Logger
	now     func() time.Time
}

func NewDigestWorkflow(agents drepo.AgentStore, trades drepo.TradeStore, digests drepo.DigestStore, writer service.DigestWriter, lgr *logger.Logger) *DigestWorkflow {
	return &DigestWorkflow{agents: agents, trades: trades, digests: digests, writer: writer, log: lgr, now: time.Now}
}

func (w *DigestWorkflow) Publish(ctx context.Context) (*models.Digest, error) {
	agents, err := w.agents.LatestAgents(ctx, digestSampleSize)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	trades, err := w.trades.ListTrades(ctx, models.TradeFilter{Limit: digestSampleSize})
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if len(agents) == 0 && len(trades) == 0 {
		return nil, models.ErrNoAgents
	}

	content, err := w.writer.WriteDigest(ctx, agents, trades)
	if err != nil {
		return nil, err
	}
	d := &models.Digest{Content: content, CreatedAt: w.now().UTC()}
	if err := w.digests.SaveDigest(ctx, d); err != nil {
		return nil, err
	}
	w.log.Info("digest published", logger.Int("chars", len(content)))
	return d, nil
}
