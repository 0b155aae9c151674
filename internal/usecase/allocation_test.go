package usecase

import (
	"errors"
	"math/rand/v2"
	"testing"

	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(action models.TradeAction, conviction models.Conviction, alloc string) models.TradeRecommendation {
	return models.TradeRecommendation{
		TokenContract:        "0x" + string(action) + alloc,
		TradeAction:          action,
		ConvictionLevel:      conviction,
		AllocationPercentage: dec(alloc),
	}
}

func TestSelectActionable(t *testing.T) {
	in := []models.TradeRecommendation{
		rec(models.ActionBuy, models.ConvictionHigh, "30"),
		rec(models.ActionBuy, models.ConvictionLow, "70"),
		rec(models.ActionSell, models.ConvictionHigh, "0"),
		rec(models.ActionHold, models.ConvictionHigh, "0"),
	}

	got := SelectActionable(in)
	require.Len(t, got, 2)
	assert.Equal(t, in[0], got[0])
	assert.Equal(t, in[2], got[1])
}

func TestSelectHighRiskSells(t *testing.T) {
	in := []models.TradeRecommendation{
		{TradeAction: models.ActionSell, RiskLevel: models.RiskHigh, TokenContract: "a"},
		{TradeAction: models.ActionSell, RiskLevel: models.RiskLow, TokenContract: "b"},
		{TradeAction: models.ActionBuy, RiskLevel: models.RiskHigh, TokenContract: "c"},
	}
	got := SelectHighRiskSells(in)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].TokenContract)
}

func TestNormalizeBuyAllocationsSumsToHundred(t *testing.T) {
	tolerance := dec("0.0000000001")
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		n := 1 + r.IntN(8)
		in := make([]models.TradeRecommendation, 0, n+1)
		for j := 0; j < n; j++ {
			alloc := decimal.NewFromFloat(0.01 + r.Float64()*100).Round(4)
			in = append(in, models.TradeRecommendation{TradeAction: models.ActionBuy, AllocationPercentage: alloc})
		}
		in = append(in, models.TradeRecommendation{TradeAction: models.ActionSell, AllocationPercentage: dec("7")})

		out, err := NormalizeBuyAllocations(in)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, o := range out {
			if o.IsBuy() {
				sum = sum.Add(o.AllocationPercentage)
			}
		}
		assert.True(t, sum.Sub(hundred).Abs().LessThan(tolerance), "sum %s", sum)
		assert.True(t, out[len(out)-1].AllocationPercentage.Equal(dec("7")), "SELL passes through")
	}
}

func TestNormalizeBuyAllocationsZeroTotal(t *testing.T) {
	tests := []struct {
		name   string
		allocs []string
	}{
		{name: "all zero", allocs: []string{"0", "0"}},
		{name: "negative total", allocs: []string{"-5", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]models.TradeRecommendation, 0, len(tt.allocs))
			for _, a := range tt.allocs {
				in = append(in, rec(models.ActionBuy, models.ConvictionHigh, a))
			}
			_, err := NormalizeBuyAllocations(in)
			var ae *models.AllocationInvariantError
			assert.True(t, errors.As(err, &ae))
		})
	}

	out, err := NormalizeBuyAllocations([]models.TradeRecommendation{rec(models.ActionSell, models.ConvictionHigh, "0")})
	require.NoError(t, err, "no BUYs means nothing to normalize")
	assert.Len(t, out, 1)
}

func TestSizeToBudgetNeverExceedsBudget(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 300; i++ {
		n := 1 + r.IntN(6)
		in := make([]models.TradeRecommendation, 0, n)
		for j := 0; j < n; j++ {
			// allocations can sum well above 100 before normalization
			alloc := decimal.NewFromFloat(r.Float64() * 100).Round(3)
			in = append(in, models.TradeRecommendation{TradeAction: models.ActionBuy, AllocationPercentage: alloc})
		}
		balance := decimal.NewFromFloat(0.000001 + r.Float64()*50).Round(9)
		fraction := decimal.NewFromFloat(0.01 + r.Float64()*0.99).Round(4)

		out, budget, err := SizeToBudget(in, balance, fraction)
		require.NoError(t, err)
		assert.True(t, budget.Equal(balance.Mul(fraction)))

		total := TotalBuyAmount(out)
		assert.True(t, total.LessThanOrEqual(budget), "total %s > budget %s", total, budget)
		for _, o := range out {
			assert.False(t, o.Amount.IsNegative())
			assert.True(t, o.Amount.Equal(o.Amount.RoundDown(AmountPlaces)))
		}
	}
}

func TestSizeToBudgetEndToEnd(t *testing.T) {
	in := []models.TradeRecommendation{
		rec(models.ActionBuy, models.ConvictionHigh, "60"),
		rec(models.ActionBuy, models.ConvictionHigh, "40"),
		rec(models.ActionSell, models.ConvictionHigh, "0"),
	}

	out, budget, err := SizeToBudget(in, dec("10"), dec("0.1"))
	require.NoError(t, err)
	assert.True(t, budget.Equal(dec("1")))
	assert.True(t, out[0].Amount.Equal(dec("0.6")), "got %s", out[0].Amount)
	assert.True(t, out[1].Amount.Equal(dec("0.4")), "got %s", out[1].Amount)
	assert.True(t, out[2].Amount.IsZero())
}

func TestSizeToBudgetClampsOverAllocation(t *testing.T) {
	in := []models.TradeRecommendation{
		rec(models.ActionBuy, models.ConvictionHigh, "90"),
		rec(models.ActionBuy, models.ConvictionHigh, "60"),
	}
	out, budget, err := SizeToBudget(in, dec("1"), dec("1"))
	require.NoError(t, err)
	assert.True(t, TotalBuyAmount(out).LessThanOrEqual(budget))
	assert.True(t, out[0].Amount.Equal(dec("0.6")), "got %s", out[0].Amount)
	assert.True(t, out[1].Amount.Equal(dec("0.4")), "got %s", out[1].Amount)
}

func TestSizeToBudgetRejectsInvalidInputs(t *testing.T) {
	buy := []models.TradeRecommendation{rec(models.ActionBuy, models.ConvictionHigh, "50")}
	tests := []struct {
		name     string
		recs     []models.TradeRecommendation
		balance  string
		fraction string
	}{
		{name: "zero balance", recs: buy, balance: "0", fraction: "0.1"},
		{name: "negative balance", recs: buy, balance: "-1", fraction: "0.1"},
		{name: "zero fraction", recs: buy, balance: "1", fraction: "0"},
		{name: "fraction above one", recs: buy, balance: "1", fraction: "1.5"},
		{name: "negative allocation", recs: []models.TradeRecommendation{rec(models.ActionBuy, models.ConvictionHigh, "-1")}, balance: "1", fraction: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SizeToBudget(tt.recs, dec(tt.balance), dec(tt.fraction))
			var ae *models.AllocationInvariantError
			assert.True(t, errors.As(err, &ae), "got %v", err)
		})
	}
}
