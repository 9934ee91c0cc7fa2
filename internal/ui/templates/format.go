// Package templates renders the dashboard page and the fragments patched
// into it over SSE. Components live in components.templ; run templ generate
// after editing it.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/filter"
	"digisale-dash/internal/models"
)

// Element IDs shared with the SSE handlers.
const (
	KPICardsID     = "kpi-cards"
	RevenueTableID = "revenue-content"
	DimensionSelID = "dimension-values"

	maxRevenueGroups = 30
)

// DashboardData is everything the first paint needs.
type DashboardData struct {
	Title      string
	Loaded     bool
	Dimensions []string
	Dimension  string
	Values     []string
	KPIs       models.KPISnapshot
	Revenue    []models.RevenueGroup
}

type kpiCard struct {
	label string
	value string
}

func kpiCards(k models.KPISnapshot) []kpiCard {
	return []kpiCard{
		{"Total Revenue", Money(k.TotalRevenue)},
		{"Total Profit", Money(k.TotalProfit)},
		{"Completed Orders", fmt.Sprint(k.CompletedOrders)},
		{"Cancellation Rate", Percent(k.CancellationRate)},
	}
}

func limitGroups(groups []models.RevenueGroup) []models.RevenueGroup {
	if len(groups) > maxRevenueGroups {
		return groups[:maxRevenueGroups]
	}
	return groups
}

// dashboardSignals is the initial datastar signal object.
func dashboardSignals(dimension string) string {
	b, _ := json.Marshal(map[string]string{"dimension": dimension, "value": filter.All})
	return string(b)
}

// Money formats an amount with two decimals and thousands separators.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}
