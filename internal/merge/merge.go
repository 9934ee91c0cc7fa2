// Package merge joins orders with their customers and products and derives
// per-line Revenue and Profit.
package merge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/models"
	"digisale-dash/internal/schema"
)

// JoinAmbiguityError reports join keys that occur more than once on the
// right-hand side of a join. Merging such data would multiply order rows.
type JoinAmbiguityError struct {
	Kind   schema.Kind
	Column string
	Keys   []string
}

func (e *JoinAmbiguityError) Error() string {
	return fmt.Sprintf("%s: duplicate %s values [%s]", e.Kind, e.Column, strings.Join(e.Keys, ", "))
}

var one = decimal.NewFromInt(1)

// Merge left-joins orders to customers on Customer_ID and the result to
// products on Product_ID. The result has exactly one record per order, in
// order. Inputs are not modified.
func Merge(orders []models.Order, customers []models.Customer, products []models.Product) ([]models.MergedRecord, error) {
	byCustomer, err := index(schema.Customers, schema.ColCustomerID, customers, func(c models.Customer) string { return c.CustomerID })
	if err != nil {
		return nil, err
	}
	byProduct, err := index(schema.Products, schema.ColProductID, products, func(p models.Product) string { return p.ProductID })
	if err != nil {
		return nil, err
	}

	out := make([]models.MergedRecord, len(orders))
	for i, o := range orders {
		rec := models.MergedRecord{Order: o}
		if c, ok := byCustomer[o.CustomerID]; ok {
			rec.Customer = c
		}
		if p, ok := byProduct[o.ProductID]; ok {
			rec.Product = p
		}
		rec.Revenue, rec.Profit = Derive(o, rec.Product)
		out[i] = rec
	}
	return out, nil
}

// Derive computes Revenue and Profit for one order line:
//
//	Revenue = Unit_Price × Quantity × (1 − Discount)
//	Profit  = (Unit_Price − Cost_Price) × Quantity × (1 − Discount)
//
// Both are null when p is nil or either price is null.
func Derive(o models.Order, p *models.Product) (revenue, profit decimal.NullDecimal) {
	if p == nil || !p.UnitPrice.Valid || !p.CostPrice.Valid {
		return decimal.NullDecimal{}, decimal.NullDecimal{}
	}
	factor := decimal.NewFromInt(int64(o.Quantity)).Mul(one.Sub(o.Discount))
	revenue = decimal.NewNullDecimal(p.UnitPrice.Decimal.Mul(factor))
	profit = decimal.NewNullDecimal(p.UnitPrice.Decimal.Sub(p.CostPrice.Decimal).Mul(factor))
	return revenue, profit
}

// index maps each key to a copy of its row. Rows without a key are skipped.
func index[T any](kind schema.Kind, column string, rows []T, key func(T) string) (map[string]*T, error) {
	m := make(map[string]*T, len(rows))
	var dups []string
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		if _, exists := m[k]; exists {
			if !slices.Contains(dups, k) {
				dups = append(dups, k)
			}
			continue
		}
		r := row
		m[k] = &r
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, &JoinAmbiguityError{Kind: kind, Column: column, Keys: dups}
	}
	return m, nil
}

// Columns lists the columns of the merged view: order columns, customer
// columns, product columns, then Revenue and Profit. Pass-through attributes
// follow the declared columns of their source, sorted by name.
func Columns(records []models.MergedRecord) []string {
	var orderAttrs, customerAttrs, productAttrs []string
	for _, r := range records {
		orderAttrs = addKeys(orderAttrs, r.Order.Attrs)
		if r.Customer != nil {
			customerAttrs = addKeys(customerAttrs, r.Customer.Attrs)
		}
		if r.Product != nil {
			productAttrs = addKeys(productAttrs, r.Product.Attrs)
		}
	}
	slices.Sort(orderAttrs)
	slices.Sort(customerAttrs)
	slices.Sort(productAttrs)

	cols := []string{
		schema.ColOrderID, schema.ColCustomerID, schema.ColProductID, schema.ColOrderDate,
		schema.ColQuantity, schema.ColDiscount, schema.ColPaymentMethod, schema.ColChannel, schema.ColStatus,
	}
	cols = append(cols, orderAttrs...)
	cols = append(cols, schema.ColCustomerSegment, schema.ColCity, schema.ColRegistrationDate)
	cols = append(cols, customerAttrs...)
	cols = append(cols, schema.ColProductName, schema.ColCategory, schema.ColUnitPrice, schema.ColCostPrice)
	cols = append(cols, productAttrs...)
	return append(cols, schema.ColRevenue, schema.ColProfit)
}

func addKeys(dst []string, m map[string]string) []string {
	for k := range m {
		if !slices.Contains(dst, k) {
			dst = append(dst, k)
		}
	}
	return dst
}
