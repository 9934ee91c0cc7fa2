package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"digisale-dash/internal/schema"
)

var errNoSheets = errors.New("workbook has no sheets")

// numericColumns are read as stored values rather than display text, so a
// Discount shown as "10%" or a Quantity shown as "1,200" decodes.
var numericColumns = []string{schema.ColQuantity, schema.ColDiscount, schema.ColUnitPrice, schema.ColCostPrice}

// maxXLSCols bounds the column scan for rows that carry no ROW record.
const maxXLSCols = 256

// parseXLSX reads the first sheet of an Office Open XML workbook. The first
// non-blank row is the header.
func parseXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Source: name, Err: errNoSheets}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	return tableFromGrid(name, withRawNumbers(rows, raw))
}

// withRawNumbers replaces the formatted cells of numeric columns with their
// raw values. Other columns keep the text the sheet displays.
func withRawNumbers(formatted, raw [][]string) [][]string {
	start := 0
	for start < len(formatted) && isBlank(formatted[start]) {
		start++
	}
	if start == len(formatted) {
		return formatted
	}

	var cols []int
	for j, h := range formatted[start] {
		if slices.Contains(numericColumns, strings.TrimSpace(h)) {
			cols = append(cols, j)
		}
	}

	for i := start + 1; i < len(formatted) && i < len(raw); i++ {
		for _, j := range cols {
			if j >= len(raw[i]) {
				continue
			}
			for len(formatted[i]) <= j {
				formatted[i] = append(formatted[i], "")
			}
			formatted[i][j] = raw[i][j]
		}
	}
	return formatted
}

// parseXLS reads the first sheet of a legacy BIFF workbook.
func parseXLS(name string, r io.Reader) (t *Table, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("read workbook: %w", err)}
	}

	// extrame/xls panics on some corrupt workbooks.
	defer func() {
		if p := recover(); p != nil {
			t = nil
			err = &ParseError{Source: name, Err: fmt.Errorf("corrupt workbook: %v", p)}
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	if wb == nil {
		return nil, &ParseError{Source: name, Err: errNoSheets}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &ParseError{Source: name, Err: errNoSheets}
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 {
			width = maxXLSCols
		}
		cells := make([]string, width)
		for j := range cells {
			cells[j] = row.Col(j)
		}
		for len(cells) > 0 && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
		grid = append(grid, cells)
	}
	return tableFromGrid(name, grid)
}

// sheetRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences missing rows.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// tableFromGrid builds a Table from raw sheet rows, skipping leading blank
// rows before the header.
func tableFromGrid(name string, grid [][]string) (*Table, error) {
	start := 0
	for start < len(grid) && isBlank(grid[start]) {
		start++
	}
	if start == len(grid) {
		return nil, &ParseError{Source: name, Err: ErrEmptyInput}
	}

	t := newTable(name, grid[start])
	for i := start + 1; i < len(grid); i++ {
		t.appendRow(i+1, grid[i])
	}
	return t, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
