package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleAgent(updated time.Time) *models.AgentRecord {
	return &models.AgentRecord{
		ContractAddress: "0xABCdef0000000000000000000000000000000001",
		Name:            "aixbt",
		TwitterHandle:   "aixbt_agent",
		Metrics7Day: &models.IntervalMetrics{
			AgentName:         "aixbt",
			TwitterUsernames:  []string{"aixbt_agent"},
			Price:             0.42,
			PriceDeltaPercent: -3.5,
			Mindshare:         1.2,
		},
		RecentPosts: []models.PostSummary{{Text: "gm", EngagementsCount: 10, SmartEngagementPoints: 2}},
		UpdatedAt:   updated,
	}
}

func TestUpsertAgentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := sampleAgent(now)

	require.NoError(t, s.UpsertAgent(ctx, a))
	first, err := s.AllAgents(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpsertAgent(ctx, a))
	second, err := s.AllAgents(ctx)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", second[0].ContractAddress)
	assert.Nil(t, second[0].Metrics3Day)
	assert.Equal(t, 0.42, second[0].Metrics7Day.Price)
}

func TestUpsertAgentReplacesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.UpsertAgent(ctx, sampleAgent(now)))

	updated := sampleAgent(now.Add(time.Hour))
	updated.Name = "aixbt v2"
	updated.Analysis = &models.Analysis{ExecutiveSummary: "strong", SupportingRationale: []string{"volume"}}
	require.NoError(t, s.UpsertAgent(ctx, updated))

	got, err := s.GetAgent(ctx, "0xabcdef0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "aixbt v2", got.Name)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "strong", got.Analysis.ExecutiveSummary)

	_, err = s.GetAgent(ctx, "0xmissing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLatestAgentsOrdersByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, addr := range []string{"0x01", "0x02", "0x03"} {
		a := sampleAgent(base.Add(time.Duration(i) * time.Hour))
		a.ContractAddress = addr
		require.NoError(t, s.UpsertAgent(ctx, a))
	}

	got, err := s.LatestAgents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0x03", got[0].ContractAddress)
	assert.Equal(t, "0x02", got[1].ContractAddress)
}

func TestTradeLifecycleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tr := &models.Trade{
		TradeID:         "7b0c2c1e-0000-4000-8000-000000000001",
		ContractAddress: "0xToken",
		TradeAction:     models.ActionBuy,
		Amount:          decimal.RequireFromString("0.123456"),
		Status:          models.StatusPending,
		Justification:   "momentum",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	require.NoError(t, s.InsertTrade(ctx, tr))
	assert.Error(t, s.InsertTrade(ctx, tr), "duplicate id must be rejected")

	resp := "swapped"
	tr.Status = models.StatusCompleted
	tr.ExecutionResponse = &resp
	tr.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, s.UpdateTrade(ctx, tr))

	got, err := s.GetTrade(ctx, tr.TradeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("0.123456")))
	require.NotNil(t, got.ExecutionResponse)
	assert.Equal(t, "swapped", *got.ExecutionResponse)
	assert.Nil(t, got.Error)
	assert.Equal(t, "0xtoken", got.ContractAddress)

	missing := *tr
	missing.TradeID = "nope"
	assert.ErrorIs(t, s.UpdateTrade(ctx, &missing), models.ErrNotFound)
}

func TestListTradesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	statuses := []models.TradeStatus{models.StatusPending, models.StatusPending, models.StatusFailed}
	for i, st := range statuses {
		ts := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertTrade(ctx, &models.Trade{
			TradeID:         string(rune('a' + i)),
			ContractAddress: "0x1",
			TradeAction:     models.ActionSell,
			Amount:          decimal.NewFromInt(1),
			Status:          st,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}))
	}

	pending, err := s.ListTrades(ctx, models.TradeFilter{Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].TradeID, "newest first")

	old, err := s.ListTrades(ctx, models.TradeFilter{Status: models.StatusPending, Before: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, "a", old[0].TradeID)

	limited, err := s.ListTrades(ctx, models.TradeFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].TradeID)
}

func TestDigests(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, txt := range []string{"first", "second"} {
		require.NoError(t, s.SaveDigest(ctx, &models.Digest{Content: txt, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	got, err := s.LatestDigests(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Content)
	assert.NotZero(t, got[0].ID)
}
