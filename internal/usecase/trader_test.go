package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedAgents(t *testing.T, s *memStore, contracts ...string) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range contracts {
		require.NoError(t, s.UpsertAgent(context.Background(), &models.AgentRecord{
			ContractAddress: c,
			Name:            "agent-" + c,
			UpdatedAt:       base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func buy(contract, alloc string) models.TradeRecommendation {
	return models.TradeRecommendation{
		TokenContract:        contract,
		TradeAction:          models.ActionBuy,
		ConvictionLevel:      models.ConvictionHigh,
		AllocationPercentage: dec(alloc),
		Justification:        "momentum",
	}
}

func newTestTrader(h *harness, gen *mockGenerator, cfg TraderConfig, portfolio fixedPortfolio) *Trader {
	return NewTrader(cfg, h.store, gen, fixedBalance(dec("10")), portfolio, h.submitter, h.locker, metrics.Nop{}, logger.Nop())
}

func TestTraderCycleIsolatesExecutionFailures(t *testing.T) {
	h := newHarness(t)
	seedAgents(t, h.store, "0xa", "0xb", "0xc")
	h.wallet.failFor["0xb"] = errors.New("revert")

	gen := &mockGenerator{}
	gen.On("GenerateRecommendations", mock.Anything, mock.Anything).Return([]models.TradeRecommendation{
		buy("0xa", "30"), buy("0xb", "20"), buy("0xc", "50"),
	}, nil)

	tr := newTestTrader(h, gen, TraderConfig{Sizing: SizingNormalize, CycleBudget: dec("1")}, nil)
	report, err := tr.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.ExecutionResults, 3)
	for _, r := range report.ExecutionResults {
		assert.Equal(t, models.ResultPending, r.Status)
		assert.Equal(t, "Trade request accepted", r.Message)
		assert.NotEmpty(t, r.TradeID)
	}

	h.wait(t)
	want := []models.TradeStatus{models.StatusCompleted, models.StatusFailed, models.StatusCompleted}
	for i, r := range report.ExecutionResults {
		got := h.store.trade(t, r.TradeID)
		assert.Equal(t, want[i], got.Status, "trade for %s", got.ContractAddress)
	}
	gen.AssertExpectations(t)
}

func TestTraderSizingStrategies(t *testing.T) {
	tests := []struct {
		name   string
		cfg    TraderConfig
		allocs []string
		want   []string
	}{
		{
			name:   "normalize to fixed budget",
			cfg:    TraderConfig{Sizing: SizingNormalize, CycleBudget: dec("2")},
			allocs: []string{"30", "20"},
			want:   []string{"1.2", "0.8"},
		},
		{
			name:   "fraction of wallet balance",
			cfg:    TraderConfig{Sizing: SizingBalanceFraction, MaxFraction: dec("0.1")},
			allocs: []string{"60", "40"},
			want:   []string{"0.6", "0.4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			seedAgents(t, h.store, "0xa")
			gen := &mockGenerator{}
			gen.On("GenerateRecommendations", mock.Anything, mock.Anything).
				Return([]models.TradeRecommendation{buy("0xa", tt.allocs[0]), buy("0xb", tt.allocs[1])}, nil)

			report, err := newTestTrader(h, gen, tt.cfg, nil).RunCycle(context.Background())
			require.NoError(t, err)
			h.wait(t)

			for i, r := range report.ExecutionResults {
				require.Equal(t, models.ResultPending, r.Status)
				got := h.store.trade(t, r.TradeID)
				assert.True(t, got.Amount.Equal(dec(tt.want[i])), "amount %s, want %s", got.Amount, tt.want[i])
			}
		})
	}
}

func TestTraderSellUsesHeldBalance(t *testing.T) {
	h := newHarness(t)
	seedAgents(t, h.store, "0xa")
	gen := &mockGenerator{}
	gen.On("GenerateRecommendations", mock.Anything, mock.Anything).Return([]models.TradeRecommendation{
		{TokenContract: "0xA", TradeAction: models.ActionSell, ConvictionLevel: models.ConvictionHigh},
		{TokenContract: "0xnothing", TradeAction: models.ActionSell, ConvictionLevel: models.ConvictionHigh},
	}, nil)

	portfolio := fixedPortfolio{{ContractAddress: "0xa", Symbol: "A", Balance: dec("1234.5")}}
	report, err := newTestTrader(h, gen, TraderConfig{}, portfolio).RunCycle(context.Background())
	require.NoError(t, err)
	h.wait(t)

	require.Len(t, report.ExecutionResults, 2)
	assert.Equal(t, models.ResultPending, report.ExecutionResults[0].Status)
	assert.True(t, h.store.trade(t, report.ExecutionResults[0].TradeID).Amount.Equal(dec("1234.5")))
	assert.Equal(t, models.ResultFailed, report.ExecutionResults[1].Status)
	assert.Equal(t, "no holding to sell", report.ExecutionResults[1].Error)
}

func TestTraderCycleErrors(t *testing.T) {
	t.Run("no agents", func(t *testing.T) {
		h := newHarness(t)
		_, err := newTestTrader(h, &mockGenerator{}, TraderConfig{}, nil).RunCycle(context.Background())
		assert.ErrorIs(t, err, models.ErrNoAgents)
	})

	t.Run("generator schema failure", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xa")
		gen := &mockGenerator{}
		gen.On("GenerateRecommendations", mock.Anything, mock.Anything).
			Return(nil, &models.SchemaValidationError{Schema: "trade_recommendations", Reason: "bad"})
		_, err := newTestTrader(h, gen, TraderConfig{}, nil).RunCycle(context.Background())
		var sve *models.SchemaValidationError
		assert.True(t, errors.As(err, &sve))
	})

	t.Run("zero BUY total without SELLs", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xa")
		gen := &mockGenerator{}
		gen.On("GenerateRecommendations", mock.Anything, mock.Anything).
			Return([]models.TradeRecommendation{buy("0xa", "0")}, nil)
		_, err := newTestTrader(h, gen, TraderConfig{CycleBudget: dec("1")}, nil).RunCycle(context.Background())
		var ae *models.AllocationInvariantError
		assert.True(t, errors.As(err, &ae))
	})

	t.Run("cycle already running", func(t *testing.T) {
		h := newHarness(t)
		seedAgents(t, h.store, "0xa")
		_, ok, err := h.locker.TryLock(context.Background(), "cycle:trader", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = newTestTrader(h, &mockGenerator{}, TraderConfig{}, nil).RunCycle(context.Background())
		assert.ErrorIs(t, err, models.ErrCycleInProgress)
	})
}

func TestTraderNoActionable(t *testing.T) {
	h := newHarness(t)
	seedAgents(t, h.store, "0xa")
	gen := &mockGenerator{}
	gen.On("GenerateRecommendations", mock.Anything, mock.Anything).Return([]models.TradeRecommendation{
		{TokenContract: "0xa", TradeAction: models.ActionHold, ConvictionLevel: models.ConvictionHigh},
		{TokenContract: "0xa", TradeAction: models.ActionBuy, ConvictionLevel: models.ConvictionLow, AllocationPercentage: decimal.NewFromInt(10)},
	}, nil)

	report, err := newTestTrader(h, gen, TraderConfig{}, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Recommendations)
	assert.Empty(t, report.ExecutionResults)
}

type failingDispatcher struct{}

func (failingDispatcher) Enqueue(context.Context, string, interface{}) error {
	return errors.New("redis down")
}

func TestSubmitMarksUndispatchedTradeFailed(t *testing.T) {
	l, store, _ := newTestLedger()
	s := NewTradeSubmitter(l, failingDispatcher{}, logger.Nop())

	res := s.Submit(context.Background(), &models.Trade{ContractAddress: "0x1", TradeAction: models.ActionBuy, Amount: dec("1")})
	assert.Equal(t, models.ResultFailed, res.Status)
	assert.Contains(t, res.Error, "redis down")
	require.NotEmpty(t, res.TradeID)
	assert.Equal(t, models.StatusFailed, store.trade(t, res.TradeID).Status)
}

func TestSubmitManual(t *testing.T) {
	h := newHarness(t)
	res, err := h.submitter.SubmitManual(context.Background(), ManualTradeRequest{
		TokenContract: "0x1111111111111111111111111111111111111111",
		TradeAction:   "SELL",
		Amount:        "42",
		Justification: "rebalance",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, res.Status)
	h.wait(t)
	assert.Equal(t, models.StatusCompleted, h.store.trade(t, res.TradeID).Status)

	_, err = h.submitter.SubmitManual(context.Background(), ManualTradeRequest{TokenContract: "0x1", TradeAction: "BUY", Amount: "0"})
	assert.Error(t, err)
}
