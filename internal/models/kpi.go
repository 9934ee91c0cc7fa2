package models

import "github.com/shopspring/decimal"

// KPISnapshot summarizes a set of merged records. Revenue, profit and the
// completed count cover completed orders only; the cancellation rate covers
// every order.
type KPISnapshot struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	CompletedOrders  int             `json:"completed_orders"`
	CancellationRate float64         `json:"cancellation_rate"`
	TotalOrders      int             `json:"total_orders"`
}

type RevenueGroup struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}
