package models

import (
	"strconv"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/schema"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Order struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	ProductID     string          `json:"product_id"`
	OrderDate     string          `json:"order_date"`
	Quantity      int             `json:"quantity"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Channel       string          `json:"channel,omitempty"`
	Status        Status          `json:"status"`
	// StatusRaw keeps the literal as it appeared in the upload.
	StatusRaw string            `json:"status_raw"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

type Customer struct {
	CustomerID       string            `json:"customer_id"`
	Segment          string            `json:"customer_segment"`
	City             string            `json:"city"`
	RegistrationDate string            `json:"registration_date,omitempty"`
	Attrs            map[string]string `json:"attrs,omitempty"`
}

type Product struct {
	ProductID string              `json:"product_id"`
	Name      string              `json:"product_name,omitempty"`
	Category  string              `json:"category"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	CostPrice decimal.NullDecimal `json:"cost_price"`
	Attrs     map[string]string   `json:"attrs,omitempty"`
}

// MergedRecord is one order joined with its customer and product. Customer
// and Product are nil when the order references a key that does not exist.
type MergedRecord struct {
	Order    Order               `json:"order"`
	Customer *Customer           `json:"customer"`
	Product  *Product            `json:"product"`
	Revenue  decimal.NullDecimal `json:"revenue"`
	Profit   decimal.NullDecimal `json:"profit"`
}

// Value resolves a column of the merged row by its source name. The second
// result is false when the column is unknown or its value is null.
func (m MergedRecord) Value(column string) (string, bool) {
	switch column {
	case schema.ColOrderID:
		return nonEmpty(m.Order.OrderID)
	case schema.ColCustomerID:
		return nonEmpty(m.Order.CustomerID)
	case schema.ColProductID:
		return nonEmpty(m.Order.ProductID)
	case schema.ColOrderDate:
		return nonEmpty(m.Order.OrderDate)
	case schema.ColQuantity:
		return strconv.Itoa(m.Order.Quantity), true
	case schema.ColDiscount:
		return m.Order.Discount.String(), true
	case schema.ColPaymentMethod:
		return nonEmpty(m.Order.PaymentMethod)
	case schema.ColChannel:
		return nonEmpty(m.Order.Channel)
	case schema.ColStatus:
		if m.Order.Status == StatusUnknown {
			return nonEmpty(m.Order.StatusRaw)
		}
		return m.Order.Status.String(), true
	case schema.ColRevenue:
		return nullString(m.Revenue)
	case schema.ColProfit:
		return nullString(m.Profit)
	}

	if c := m.Customer; c != nil {
		switch column {
		case schema.ColCustomerSegment:
			return nonEmpty(c.Segment)
		case schema.ColCity:
			return nonEmpty(c.City)
		case schema.ColRegistrationDate:
			return nonEmpty(c.RegistrationDate)
		}
	}

	if p := m.Product; p != nil {
		switch column {
		case schema.ColProductName:
			return nonEmpty(p.Name)
		case schema.ColCategory:
			return nonEmpty(p.Category)
		case schema.ColUnitPrice:
			return nullString(p.UnitPrice)
		case schema.ColCostPrice:
			return nullString(p.CostPrice)
		}
	}

	if v, ok := m.Order.Attrs[column]; ok {
		return nonEmpty(v)
	}
	if m.Customer != nil {
		if v, ok := m.Customer.Attrs[column]; ok {
			return nonEmpty(v)
		}
	}
	if m.Product != nil {
		if v, ok := m.Product.Attrs[column]; ok {
			return nonEmpty(v)
		}
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}

func nullString(d decimal.NullDecimal) (string, bool) {
	if !d.Valid {
		return "", false
	}
	return d.Decimal.String(), true
}
