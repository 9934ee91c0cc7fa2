// Package filter restricts merged records to one value of a dimension
// column. It holds no KPI logic; callers aggregate the subset themselves.
package filter

import (
	"slices"

	"digisale-dash/internal/models"
	"digisale-dash/internal/schema"
)

// All selects every row regardless of the dimension value.
const All = "__all__"

// Dimensions are the columns offered as filters on the dashboard. Apply and
// Values accept any merged column.
var Dimensions = []string{
	schema.ColCity,
	schema.ColCustomerSegment,
	schema.ColCategory,
	schema.ColChannel,
	schema.ColPaymentMethod,
}

// Apply returns the records whose dimension equals value. With value All the
// input is returned unchanged. Rows whose dimension is null never match.
func Apply(records []models.MergedRecord, dimension, value string) []models.MergedRecord {
	if value == All {
		return records
	}
	out := make([]models.MergedRecord, 0)
	for _, r := range records {
		if v, ok := r.Value(dimension); ok && v == value {
			out = append(out, r)
		}
	}
	return out
}

// Values returns the sorted distinct non-null values of dimension.
func Values(records []models.MergedRecord, dimension string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v, ok := r.Value(dimension); ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
