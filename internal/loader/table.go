package loader

import (
	"slices"
	"strings"
)

// Table is a parsed upload: a header and rows of text cells. An empty cell
// is null.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]string
	// RowNumbers maps Rows[i] to its 1-based row in the source.
	RowNumbers []int

	index map[string]int
}

func newTable(source string, header []string) *Table {
	cols := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		c := strings.TrimSpace(h)
		cols[i] = c
		// first occurrence wins for repeated headers
		if _, dup := index[c]; !dup && c != "" {
			index[c] = i
		}
	}
	return &Table{Source: source, Columns: cols, index: index}
}

// appendRow adds a data row. Rows whose cells are all blank are dropped.
func (t *Table) appendRow(sourceRow int, cells []string) {
	row := make([]string, len(cells))
	blank := true
	for i, c := range cells {
		row[i] = strings.TrimSpace(c)
		if row[i] != "" {
			blank = false
		}
	}
	if blank {
		return
	}
	t.Rows = append(t.Rows, row)
	t.RowNumbers = append(t.RowNumbers, sourceRow)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Cell returns the value at row i of column. The second result is false when
// the column is absent or the cell is null.
func (t *Table) Cell(i int, column string) (string, bool) {
	idx, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	row := t.Rows[i]
	if idx >= len(row) || row[idx] == "" {
		return "", false
	}
	return row[idx], true
}

// Missing returns the entries of required absent from the table, in the
// order given.
func (t *Table) Missing(required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Extra returns the columns of the table not listed in known.
func (t *Table) Extra(known []string) []string {
	var extra []string
	for _, col := range t.Columns {
		if col != "" && !slices.Contains(known, col) {
			extra = append(extra, col)
		}
	}
	return extra
}

func (t *Table) sourceRow(i int) int {
	if i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 2
}
