package loader

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"digisale-dash/internal/models"
)

// StatusMap normalizes localized status literals. It must not be modified
// once shared between goroutines.
type StatusMap struct {
	literals map[string]models.Status
}

// DefaultStatusMap recognizes the Hebrew literals used by the source exports
// and their English equivalents.
func DefaultStatusMap() *StatusMap {
	m := &StatusMap{literals: make(map[string]models.Status)}
	m.Add("הושלם", models.StatusCompleted)
	m.Add("Completed", models.StatusCompleted)
	m.Add("בוטל", models.StatusCancelled)
	m.Add("Cancelled", models.StatusCancelled)
	m.Add("Canceled", models.StatusCancelled)
	return m
}

func (m *StatusMap) Add(literal string, s models.Status) {
	if k := statusKey(literal); k != "" {
		m.literals[k] = s
	}
}

// Normalize returns the status for raw, or StatusUnknown when raw is not a
// recognized literal.
func (m *StatusMap) Normalize(raw string) models.Status {
	if m == nil {
		return models.StatusUnknown
	}
	return m.literals[statusKey(raw)]
}

func statusKey(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Fold().String(s)
}
