// Package schema declares the column contracts of the datasets the dashboard
// ingests. It is a static declaration: the loader checks uploads against it,
// nothing here inspects data.
package schema

import (
	"fmt"
	"slices"
	"sync"
)

// Kind names a dataset kind.
type Kind string

const (
	Orders    Kind = "orders"
	Customers Kind = "customers"
	Products  Kind = "products"
)

// Column names shared by the loader, merge engine and filters.
const (
	ColOrderID          = "Order_ID"
	ColCustomerID       = "Customer_ID"
	ColProductID        = "Product_ID"
	ColOrderDate        = "Order_Date"
	ColQuantity         = "Quantity"
	ColDiscount         = "Discount"
	ColPaymentMethod    = "Payment_Method"
	ColChannel          = "Channel"
	ColStatus           = "Status"
	ColCustomerSegment  = "Customer_Segment"
	ColCity             = "City"
	ColRegistrationDate = "Registration_Date"
	ColProductName      = "Product_Name"
	ColCategory         = "Category"
	ColUnitPrice        = "Unit_Price"
	ColCostPrice        = "Cost_Price"
	ColRevenue          = "Revenue"
	ColProfit           = "Profit"
)

// Contract is the column contract of one dataset kind.
type Contract struct {
	Kind Kind
	// Required columns must be present in an upload, in declaration order.
	Required []string
	// Optional columns are understood when present.
	Optional []string
	// Key is the column that identifies a row of this kind.
	Key string
}

// Columns returns required followed by optional columns.
func (c Contract) Columns() []string {
	out := make([]string, 0, len(c.Required)+len(c.Optional))
	out = append(out, c.Required...)
	return append(out, c.Optional...)
}

// Registry maps dataset kinds to their contracts. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	contracts map[Kind]Contract
	order     []Kind
}

func NewRegistry() *Registry {
	return &Registry{contracts: make(map[Kind]Contract)}
}

// Default returns a registry holding the orders, customers and products
// contracts.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Contract{
		Kind:     Orders,
		Required: []string{ColOrderID, ColCustomerID, ColProductID, ColOrderDate, ColQuantity, ColStatus},
		Optional: []string{ColDiscount, ColPaymentMethod, ColChannel},
		Key:      ColOrderID,
	})
	r.Register(Contract{
		Kind:     Customers,
		Required: []string{ColCustomerID, ColCustomerSegment, ColCity},
		Optional: []string{ColRegistrationDate},
		Key:      ColCustomerID,
	})
	r.Register(Contract{
		Kind:     Products,
		Required: []string{ColProductID, ColCategory, ColUnitPrice, ColCostPrice},
		Optional: []string{ColProductName},
		Key:      ColProductID,
	})
	return r
}

// Register adds or replaces the contract for c.Kind.
func (r *Registry) Register(c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[c.Kind]; !exists {
		r.order = append(r.order, c.Kind)
	}
	c.Required = slices.Clone(c.Required)
	c.Optional = slices.Clone(c.Optional)
	r.contracts[c.Kind] = c
}

func (r *Registry) Contract(kind Kind) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[kind]
	if !ok {
		return Contract{}, fmt.Errorf("unknown dataset kind %q", kind)
	}
	c.Required = slices.Clone(c.Required)
	c.Optional = slices.Clone(c.Optional)
	return c, nil
}

// Required returns a copy of the required column set of kind.
func (r *Registry) Required(kind Kind) ([]string, error) {
	c, err := r.Contract(kind)
	if err != nil {
		return nil, err
	}
	return c.Required, nil
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
