package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"digisale-dash/internal/schema"
)

func TestMergedRecord_Value(t *testing.T) {
	rec := MergedRecord{
		Order: Order{
			OrderID:    "O1",
			CustomerID: "C1",
			ProductID:  "P1",
			Quantity:   3,
			Discount:   decimal.RequireFromString("0.25"),
			Channel:    "Web",
			Status:     StatusCompleted,
			StatusRaw:  "הושלם",
			Attrs:      map[string]string{"Coupon": "SPRING"},
		},
		Customer: &Customer{CustomerID: "C1", City: "Haifa", Attrs: map[string]string{"Tier": "Gold"}},
		Product: &Product{
			ProductID: "P1",
			Category:  "Home",
			UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("100")),
		},
		Revenue: decimal.NewNullDecimal(decimal.RequireFromString("225")),
	}

	tests := []struct {
		column string
		want   string
		ok     bool
	}{
		{schema.ColOrderID, "O1", true},
		{schema.ColQuantity, "3", true},
		{schema.ColDiscount, "0.25", true},
		{schema.ColStatus, "Completed", true},
		{schema.ColChannel, "Web", true},
		{schema.ColPaymentMethod, "", false},
		{schema.ColCity, "Haifa", true},
		{schema.ColCustomerSegment, "", false},
		{schema.ColCategory, "Home", true},
		{schema.ColUnitPrice, "100", true},
		{schema.ColCostPrice, "", false},
		{schema.ColRevenue, "225", true},
		{schema.ColProfit, "", false},
		{"Coupon", "SPRING", true},
		{"Tier", "Gold", true},
		{"Nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := rec.Value(tt.column)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Value(%q) = (%q, %v), want (%q, %v)", tt.column, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMergedRecord_ValueUnmatched(t *testing.T) {
	rec := MergedRecord{Order: Order{OrderID: "O9", Status: StatusUnknown, StatusRaw: "Pending"}}

	if got, ok := rec.Value(schema.ColStatus); !ok || got != "Pending" {
		t.Errorf("unknown status = (%q, %v), want raw literal", got, ok)
	}
	if _, ok := rec.Value(schema.ColCity); ok {
		t.Error("City should be null without a customer")
	}
	if _, ok := rec.Value(schema.ColCategory); ok {
		t.Error("Category should be null without a product")
	}
}

func TestStatus_MarshalText(t *testing.T) {
	data, err := json.Marshal(map[string]Status{"s": StatusCancelled})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"s":"Cancelled"}` {
		t.Errorf("json = %s", data)
	}
}
