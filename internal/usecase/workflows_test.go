package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	"TradePilot/pkg/queue"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestManagerCycle(t *testing.T) {
	holdings := fixedPortfolio{
		{ContractAddress: "0xAAA", Symbol: "AAA", Balance: dec("500")},
		{ContractAddress: "0xccc", Symbol: "CCC", Balance: dec("7")},
	}

	t.Run("no matches", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xzzz")
		m := NewManager(h.store, holdings, &mockGenerator{}, h.submitter, h.locker, metrics.Nop{}, logger.Nop(), 0, 0)

		report, err := m.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MsgNoPortfolioMatches, report.Message)
		assert.Empty(t, report.ExecutionResults)
	})

	t.Run("no high risk sells", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xaaa")
		gen := &mockGenerator{}
		gen.On("GeneratePortfolioRecommendations", mock.Anything, mock.Anything).Return([]models.TradeRecommendation{
			{TokenContract: "0xaaa", TradeAction: models.ActionSell, RiskLevel: models.RiskMedium},
			{TokenContract: "0xaaa", TradeAction: models.ActionHold, RiskLevel: models.RiskHigh},
		}, nil)
		m := NewManager(h.store, holdings, gen, h.submitter, h.locker, metrics.Nop{}, logger.Nop(), 0, 0)

		report, err := m.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MsgNoHighRiskSells, report.Message)
		assert.Len(t, report.PortfolioMatches, 1)
	})

	t.Run("sells full held balance", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xaaa", "0xccc")
		gen := &mockGenerator{}
		gen.On("GeneratePortfolioRecommendations", mock.Anything, mock.MatchedBy(func(pm []models.PortfolioMatch) bool {
			return len(pm) == 2 && pm[0].Holding.ContractAddress == "0xaaa"
		})).Return([]models.TradeRecommendation{
			{TokenContract: "0xAAA", TradeAction: models.ActionSell, RiskLevel: models.RiskHigh, Justification: "rug risk"},
		}, nil)
		m := NewManager(h.store, holdings, gen, h.submitter, h.locker, metrics.Nop{}, logger.Nop(), 0, 0)

		report, err := m.RunCycle(context.Background())
		require.NoError(t, err)
		require.Len(t, report.ExecutionResults, 1)
		h.wait(t)

		tr := h.store.trade(t, report.ExecutionResults[0].TradeID)
		assert.Equal(t, models.ActionSell, tr.TradeAction)
		assert.True(t, tr.Amount.Equal(dec("500")))
		assert.Equal(t, "agent-0xaaa", tr.TokenName)
		assert.Equal(t, models.StatusCompleted, tr.Status)
		gen.AssertExpectations(t)
	})

	t.Run("zero balance holding is not sold", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xddd")
		empty := fixedPortfolio{{ContractAddress: "0xDDD", Symbol: "DDD", Balance: dec("0")}}
		gen := &mockGenerator{}
		gen.On("GeneratePortfolioRecommendations", mock.Anything, mock.Anything).Return([]models.TradeRecommendation{
			{TokenContract: "0xddd", TradeAction: models.ActionSell, RiskLevel: models.RiskHigh},
		}, nil)
		m := NewManager(h.store, empty, gen, h.submitter, h.locker, metrics.Nop{}, logger.Nop(), 0, 0)

		report, err := m.RunCycle(context.Background())
		require.NoError(t, err)
		require.Len(t, report.ExecutionResults, 1)
		assert.Equal(t, models.ResultFailed, report.ExecutionResults[0].Status)
		assert.Equal(t, "no holding to sell", report.ExecutionResults[0].Error)
		assert.Empty(t, h.store.trades)
		assert.Empty(t, h.wallet.instructions)
	})
}

func TestMatchHoldingsIsCaseInsensitive(t *testing.T) {
	agents := []models.AgentRecord{{ContractAddress: "0xAbC"}, {ContractAddress: "0xdef"}}
	holdings := []models.Holding{{ContractAddress: "0xabc"}, {ContractAddress: "0x999"}, {ContractAddress: "0xDEF"}}

	got := MatchHoldings(agents, holdings)
	require.Len(t, got, 2)
	assert.Equal(t, "0xabc", got[0].Holding.ContractAddress)
	assert.Equal(t, "0xdef", got[1].Holding.ContractAddress)
}

type stubGateway struct {
	agent    *models.AgentRecord
	agentErr error
	posts    []models.PostSummary
	postsErr error
	from, to time.Time
}

func (g *stubGateway) FetchIntervalMetrics(context.Context, string, models.Interval) (*models.IntervalMetrics, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) FetchRecentPosts(_ context.Context, _ string, from, to time.Time) ([]models.PostSummary, error) {
	g.from, g.to = from, to
	return g.posts, g.postsErr
}

func (g *stubGateway) FetchAgent(context.Context, string) (*models.AgentRecord, error) {
	if g.agentErr != nil {
		return nil, g.agentErr
	}
	cp := *g.agent
	return &cp, nil
}

type stubAnalyst struct {
	analysis *models.Analysis
	err      error
}

func (a stubAnalyst) Analyze(context.Context, *models.AgentRecord) (*models.Analysis, error) {
	return a.analysis, a.err
}

func TestAnalystRefresh(t *testing.T) {
	analysis := &models.Analysis{
		ExecutiveSummary:      "steady",
		TradingRecommendation: models.AnalysisPosition{Position: models.ActionHold},
	}
	agent := &models.AgentRecord{ContractAddress: "0xabc", Name: "ABC", TwitterHandle: "abc"}

	tests := []struct {
		name    string
		gateway *stubGateway
		analyst stubAnalyst
		wantErr error
	}{
		{name: "stored", gateway: &stubGateway{agent: agent, posts: []models.PostSummary{{Text: "gm"}}}, analyst: stubAnalyst{analysis: analysis}},
		{name: "missing handle", gateway: &stubGateway{agent: &models.AgentRecord{ContractAddress: "0xabc"}}, wantErr: models.ErrMissingHandle},
		{name: "posts fail", gateway: &stubGateway{agent: agent, postsErr: &models.DataProviderError{Provider: "cookie", Status: 500}}},
		{name: "analysis fails", gateway: &stubGateway{agent: agent}, analyst: stubAnalyst{err: &models.SchemaValidationError{Schema: "analysis"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			w := NewAnalystWorkflow(tt.gateway, tt.analyst, store, metrics.Nop{}, logger.Nop(), nil, 0)
			now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
			w.now = func() time.Time { return now }

			rec, err := w.Refresh(context.Background(), "0xABC")
			_, getErr := store.GetAgent(context.Background(), "0xabc")

			if tt.analyst.analysis == nil || tt.gateway.postsErr != nil {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.ErrorIs(t, getErr, models.ErrNotFound, "nothing may be written on failure")
				return
			}
			require.NoError(t, err)
			require.NoError(t, getErr)
			assert.Equal(t, analysis, rec.Analysis)
			assert.Len(t, rec.RecentPosts, 1)
			assert.Equal(t, now, rec.UpdatedAt)
			assert.Equal(t, 48*time.Hour, tt.gateway.to.Sub(tt.gateway.from))
		})
	}
}

func TestAnalystPicksConfiguredContract(t *testing.T) {
	store := newMemStore()
	gw := &stubGateway{agent: &models.AgentRecord{ContractAddress: "0xbbb", TwitterHandle: "b"}}
	w := NewAnalystWorkflow(gw, stubAnalyst{analysis: &models.Analysis{}}, store, metrics.Nop{}, logger.Nop(), []string{"0xaaa", "0xbbb"}, time.Hour)
	w.pick = func(int) int { return 1 }

	rec, err := w.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", rec.ContractAddress)

	empty := NewAnalystWorkflow(gw, stubAnalyst{}, store, metrics.Nop{}, logger.Nop(), nil, 0)
	_, err = empty.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestSweepFailsStalePendingTrades(t *testing.T) {
	l, store, _ := newTestLedger()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	put := func(id string, status models.TradeStatus, age time.Duration) {
		require.NoError(t, store.InsertTrade(context.Background(), &models.Trade{
			TradeID: id, ContractAddress: "0x1", TradeAction: models.ActionBuy, Amount: dec("1"),
			Status: status, CreatedAt: now.Add(-age), UpdatedAt: now.Add(-age),
		}))
	}
	put("stale", models.StatusPending, time.Hour)
	put("fresh", models.StatusPending, time.Minute)
	put("running", models.StatusProcessing, time.Hour)

	s := NewSweeper(l, store, 15*time.Minute, logger.Nop())
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale := store.trade(t, "stale")
	assert.Equal(t, models.StatusFailed, stale.Status)
	require.NotNil(t, stale.Error)
	assert.Contains(t, *stale.Error, "not executed within 15m0s")
	assert.Equal(t, models.StatusPending, store.trade(t, "fresh").Status)
	assert.Equal(t, models.StatusProcessing, store.trade(t, "running").Status)

	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepSkipsLockedTrade(t *testing.T) {
	l, store, _ := newTestLedger()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertTrade(context.Background(), &models.Trade{
		TradeID: "busy", Status: models.StatusPending, CreatedAt: now.Add(-time.Hour),
	}))

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithTradeLock(context.Background(), "busy", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	s := NewSweeper(l, store, time.Minute, logger.Nop())
	s.now = func() time.Time { return now }
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.StatusPending, store.trade(t, "busy").Status)
}

type stubWriter struct {
	gotAgents int
	gotTrades int
}

func (w *stubWriter) WriteDigest(_ context.Context, agents []models.AgentRecord, trades []models.Trade) (string, error) {
	w.gotAgents, w.gotTrades = len(agents), len(trades)
	return "markets are moving", nil
}

func TestDigestPublish(t *testing.T) {
	store := newMemStore()
	writer := &stubWriter{}
	w := NewDigestWorkflow(store, store, store, writer, logger.Nop())

	_, err := w.Publish(context.Background())
	assert.ErrorIs(t, err, models.ErrNoAgents)

	seedAgents(t, store, "0x1", "0x2", "0x3", "0x4", "0x5", "0x6", "0x7")
	d, err := w.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "markets are moving", d.Content)
	assert.Equal(t, 5, writer.gotAgents)
	assert.Zero(t, writer.gotTrades)

	saved, err := store.LatestDigests(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, d.Content, saved[0].Content)
}

func TestExecuteTradeJobSkipsNonPending(t *testing.T) {
	l, store, _ := newTestLedger()
	wallet := &fakeWallet{failFor: map[string]error{}}
	job := NewExecuteTradeJob(l, NewExecutor(l, wallet, time.Second, logger.Nop()), logger.Nop())

	tr := &models.Trade{ContractAddress: "0x1", TradeAction: models.ActionBuy, Amount: dec("1")}
	require.NoError(t, l.CreatePending(context.Background(), tr))
	payload, _ := json.Marshal(ExecuteTradePayload{TradeID: tr.TradeID})

	require.NoError(t, job.Handle(context.Background(), payload))
	assert.Equal(t, models.StatusCompleted, store.trade(t, tr.TradeID).Status)

	require.NoError(t, job.Handle(context.Background(), payload))
	assert.Len(t, wallet.instructions, 1, "a finished trade is never executed twice")

	assert.NoError(t, job.Handle(context.Background(), json.RawMessage(`{}`)))
	assert.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"trade_id":"missing"}`)))
}

// slowWallet answers after delay, or fails with the context error if cancelled first.
type slowWallet struct{ delay time.Duration }

func (w slowWallet) Stream(ctx context.Context, _ string) (*schema.StreamReader[models.AgentChunk], error) {
	sr, sw := schema.Pipe[models.AgentChunk](1)
	go func() {
		defer sw.Close()
		select {
		case <-time.After(w.delay):
			sw.Send(models.AgentChunk{Source: models.ChunkAgent, Content: "swapped"}, nil)
		case <-ctx.Done():
			sw.Send(models.AgentChunk{}, ctx.Err())
		}
	}()
	return sr, nil
}

func TestQueueShutdownCompletesInFlightTrade(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger()
	lgr := logger.Nop()
	q := queue.NewLocalQueue(lgr, &queue.Config{Workers: 1})
	q.Register(NewExecuteTradeJob(l, NewExecutor(l, slowWallet{delay: 200 * time.Millisecond}, time.Minute, lgr), lgr))
	require.NoError(t, q.Start(ctx))

	tr := &models.Trade{ContractAddress: "0x1", TradeAction: models.ActionBuy, Amount: dec("1")}
	require.NoError(t, l.CreatePending(ctx, tr))
	require.NoError(t, q.Enqueue(ctx, ExecuteTradeType, ExecuteTradePayload{TradeID: tr.TradeID}))
	require.Eventually(t, func() bool {
		return store.trade(t, tr.TradeID).Status == models.StatusProcessing
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))

	got := store.trade(t, tr.TradeID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Nil(t, got.Error)
	require.NotNil(t, got.ExecutionResponse)
	assert.Equal(t, "swapped", *got.ExecutionResponse)
}

func TestTradeEventsHandler(t *testing.T) {
	out := &recordingEvents{}
	h := NewTradeEventsHandler("trade-events", out, metrics.Nop{})
	assert.Equal(t, "trade-events", h.Topic())

	ev := models.TradeEvent{TradeID: "t1", Status: models.StatusProcessing, OccurredAt: time.Now()}
	b, _ := json.Marshal(ev)
	require.NoError(t, h.Handle(context.Background(), b))
	assert.Equal(t, []models.TradeStatus{models.StatusProcessing}, out.statuses("t1"))

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"status":"FAILED"}`)))
	assert.Len(t, out.events, 1)
}
