package loader

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/models"
	"digisale-dash/internal/schema"
)

var (
	errMissingValue = errors.New("missing value")
	errNegative     = errors.New("must not be negative")
	errNotInteger   = errors.New("must be a whole number")
	errDiscount     = errors.New("must be a fraction in [0, 1)")
	errOutOfRange   = errors.New("out of range")
)

var maxQuantity = decimal.NewFromInt(math.MaxInt)

var (
	orderColumns = []string{
		schema.ColOrderID, schema.ColCustomerID, schema.ColProductID, schema.ColOrderDate,
		schema.ColQuantity, schema.ColStatus, schema.ColDiscount, schema.ColPaymentMethod, schema.ColChannel,
	}
	customerColumns = []string{
		schema.ColCustomerID, schema.ColCustomerSegment, schema.ColCity, schema.ColRegistrationDate,
	}
	productColumns = []string{
		schema.ColProductID, schema.ColProductName, schema.ColCategory, schema.ColUnitPrice, schema.ColCostPrice,
	}
)

// rowReader pulls typed cells out of one table row and remembers the first
// failure, so decoders can read every field before checking for errors.
type rowReader struct {
	t   *Table
	i   int
	err error
}

func (r *rowReader) fail(column string, err error) {
	if r.err == nil {
		r.err = &ParseError{Source: r.t.Source, Row: r.t.sourceRow(r.i), Column: column, Err: err}
	}
}

func (r *rowReader) text(column string) string {
	v, _ := r.t.Cell(r.i, column)
	return v
}

func (r *rowReader) key(column string) string {
	v, ok := r.t.Cell(r.i, column)
	if !ok {
		r.fail(column, errMissingValue)
	}
	return v
}

func (r *rowReader) quantity(column string) int {
	v, ok := r.t.Cell(r.i, column)
	if !ok {
		r.fail(column, errMissingValue)
		return 0
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(column, fmt.Errorf("invalid number %q", v))
		return 0
	}
	if !d.IsInteger() {
		r.fail(column, errNotInteger)
		return 0
	}
	if d.IsNegative() {
		r.fail(column, errNegative)
		return 0
	}
	if d.GreaterThan(maxQuantity) {
		r.fail(column, errOutOfRange)
		return 0
	}
	return int(d.IntPart())
}

func (r *rowReader) discount(column string) decimal.Decimal {
	v, ok := r.t.Cell(r.i, column)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(column, fmt.Errorf("invalid number %q", v))
		return decimal.Zero
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		r.fail(column, errDiscount)
		return decimal.Zero
	}
	return d
}

func (r *rowReader) price(column string) decimal.NullDecimal {
	v, ok := r.t.Cell(r.i, column)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(column, fmt.Errorf("invalid number %q", v))
		return decimal.NullDecimal{}
	}
	if d.IsNegative() {
		r.fail(column, errNegative)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// attrs collects the pass-through columns of the row.
func (r *rowReader) attrs(extra []string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for _, col := range extra {
		if v, ok := r.t.Cell(r.i, col); ok {
			out[col] = v
		}
	}
	return out
}

// DecodeOrders converts a validated orders table into records. Order_ID must
// be unique; duplicates are reported together in a *DuplicateKeyError.
func DecodeOrders(t *Table, statuses *StatusMap) ([]models.Order, error) {
	extra := t.Extra(orderColumns)
	out := make([]models.Order, 0, t.Len())
	seen := make(map[string]int, t.Len())
	var dups []string

	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		raw := r.text(schema.ColStatus)
		o := models.Order{
			OrderID:       r.key(schema.ColOrderID),
			CustomerID:    r.text(schema.ColCustomerID),
			ProductID:     r.text(schema.ColProductID),
			OrderDate:     r.text(schema.ColOrderDate),
			Quantity:      r.quantity(schema.ColQuantity),
			Discount:      r.discount(schema.ColDiscount),
			PaymentMethod: r.text(schema.ColPaymentMethod),
			Channel:       r.text(schema.ColChannel),
			Status:        statuses.Normalize(raw),
			StatusRaw:     raw,
			Attrs:         r.attrs(extra),
		}
		if r.err != nil {
			return nil, r.err
		}

		seen[o.OrderID]++
		if seen[o.OrderID] == 2 {
			dups = append(dups, o.OrderID)
		}
		out = append(out, o)
	}

	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, &DuplicateKeyError{Source: t.Source, Column: schema.ColOrderID, Keys: dups}
	}
	return out, nil
}

// DecodeCustomers converts a validated customers table into records. Key
// uniqueness is checked by the merge engine.
func DecodeCustomers(t *Table) ([]models.Customer, error) {
	extra := t.Extra(customerColumns)
	out := make([]models.Customer, 0, t.Len())

	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		c := models.Customer{
			CustomerID:       r.key(schema.ColCustomerID),
			Segment:          r.text(schema.ColCustomerSegment),
			City:             r.text(schema.ColCity),
			RegistrationDate: r.text(schema.ColRegistrationDate),
			Attrs:            r.attrs(extra),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, c)
	}
	return out, nil
}

// DecodeProducts converts a validated products table into records. An empty
// price cell decodes to a null price.
func DecodeProducts(t *Table) ([]models.Product, error) {
	extra := t.Extra(productColumns)
	out := make([]models.Product, 0, t.Len())

	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		p := models.Product{
			ProductID: r.key(schema.ColProductID),
			Name:      r.text(schema.ColProductName),
			Category:  r.text(schema.ColCategory),
			UnitPrice: r.price(schema.ColUnitPrice),
			CostPrice: r.price(schema.ColCostPrice),
			Attrs:     r.attrs(extra),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, p)
	}
	return out, nil
}
