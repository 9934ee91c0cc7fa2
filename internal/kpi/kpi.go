// Package kpi reduces merged order records to summary indicators.
package kpi

import (
	"slices"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/models"
)

// Aggregate computes the KPI snapshot of records.
//
// The cancellation rate is measured over every order, while revenue, profit
// and the completed count only consider completed orders. Null Revenue or
// Profit values are left out of the sums. An empty input yields a zero
// snapshot.
func Aggregate(records []models.MergedRecord) models.KPISnapshot {
	snap := models.KPISnapshot{
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
		TotalOrders:  len(records),
	}

	cancelled := 0
	for _, r := range records {
		switch r.Order.Status {
		case models.StatusCancelled:
			cancelled++
		case models.StatusCompleted:
			snap.CompletedOrders++
			if r.Revenue.Valid {
				snap.TotalRevenue = snap.TotalRevenue.Add(r.Revenue.Decimal)
			}
			if r.Profit.Valid {
				snap.TotalProfit = snap.TotalProfit.Add(r.Profit.Decimal)
			}
		}
	}

	if len(records) > 0 {
		snap.CancellationRate = float64(cancelled) * 100 / float64(len(records))
	}
	return snap
}

// RevenueBy sums the revenue of completed orders per value of column,
// largest first. Rows with a null dimension value or null revenue are
// skipped.
func RevenueBy(records []models.MergedRecord, column string) []models.RevenueGroup {
	groups := make(map[string]*models.RevenueGroup)

	for _, r := range records {
		if r.Order.Status != models.StatusCompleted || !r.Revenue.Valid {
			continue
		}
		key, ok := r.Value(column)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &models.RevenueGroup{Key: key, Revenue: decimal.Zero}
			groups[key] = g
		}
		g.Revenue = g.Revenue.Add(r.Revenue.Decimal)
		g.Orders++
	}

	result := make([]models.RevenueGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	slices.SortFunc(result, func(a, b models.RevenueGroup) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	return result
}
