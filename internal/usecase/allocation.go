package usecase

import (
	"fmt"

	"TradePilot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the precision trade amounts are rounded down to.
const AmountPlaces int32 = 6

var hundred = decimal.NewFromInt(100)

// SelectActionable keeps HIGH conviction BUY and SELL recommendations, in order.
func SelectActionable(recs []models.TradeRecommendation) []models.TradeRecommendation {
	out := make([]models.TradeRecommendation, 0, len(recs))
	for _, r := range recs {
		if r.TradeAction != models.ActionHold && r.ConvictionLevel == models.ConvictionHigh {
			out = append(out, r)
		}
	}
	return out
}

// SelectHighRiskSells keeps SELL recommendations flagged HIGH risk, in order.
func SelectHighRiskSells(recs []models.TradeRecommendation) []models.TradeRecommendation {
	out := make([]models.TradeRecommendation, 0, len(recs))
	for _, r := range recs {
		if r.TradeAction == models.ActionSell && r.RiskLevel == models.RiskHigh {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeBuyAllocations returns a copy of recs whose BUY allocations are rescaled to
// sum to 100. Other entries pass through unchanged. A list without BUYs is returned as is.
func NormalizeBuyAllocations(recs []models.TradeRecommendation) ([]models.TradeRecommendation, error) {
	out := make([]models.TradeRecommendation, len(recs))
	copy(out, recs)

	total := decimal.Zero
	buys := 0
	for _, r := range out {
		if r.IsBuy() {
			total = total.Add(r.AllocationPercentage)
			buys++
		}
	}
	if buys == 0 {
		return out, nil
	}
	if !total.IsPositive() {
		return nil, &models.AllocationInvariantError{
			Reason: fmt.Sprintf("BUY allocations sum to %s, expected a positive total", total),
		}
	}

	for i := range out {
		if out[i].IsBuy() {
			out[i].AllocationPercentage = out[i].AllocationPercentage.Div(total).Mul(hundred)
		}
	}
	return out, nil
}

// SizeToBudget converts BUY allocation percentages into amounts of balance × fraction.
// Amounts are rounded down to AmountPlaces; when they still exceed the budget (allocations
// summing above 100) they are scaled down proportionally, so the total never exceeds the
// budget. Non-BUY entries keep their amount.
func SizeToBudget(recs []models.TradeRecommendation, balance, fraction decimal.Decimal) ([]models.TradeRecommendation, decimal.Decimal, error) {
	if !balance.IsPositive() {
		return nil, decimal.Zero, &models.AllocationInvariantError{Reason: fmt.Sprintf("balance %s is not positive", balance)}
	}
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, decimal.Zero, &models.AllocationInvariantError{Reason: fmt.Sprintf("fraction %s outside (0, 1]", fraction)}
	}
	budget := balance.Mul(fraction)

	out := make([]models.TradeRecommendation, len(recs))
	copy(out, recs)

	total := decimal.Zero
	for i := range out {
		if !out[i].IsBuy() {
			continue
		}
		if out[i].AllocationPercentage.IsNegative() {
			return nil, decimal.Zero, &models.AllocationInvariantError{
				Reason: fmt.Sprintf("negative allocation %s for %s", out[i].AllocationPercentage, out[i].TokenContract),
			}
		}
		out[i].Amount = out[i].AllocationPercentage.Div(hundred).Mul(budget).RoundDown(AmountPlaces)
		total = total.Add(out[i].Amount)
	}

	if total.GreaterThan(budget) {
		for i := range out {
			if out[i].IsBuy() {
				out[i].Amount = out[i].Amount.Mul(budget).Div(total).RoundDown(AmountPlaces)
			}
		}
	}
	return out, budget, nil
}

// TotalBuyAmount sums the sized BUY amounts.
func TotalBuyAmount(recs []models.TradeRecommendation) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recs {
		if r.IsBuy() {
			total = total.Add(r.Amount)
		}
	}
	return total
}
