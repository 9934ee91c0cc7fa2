package loader

import (
	"encoding/csv"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// parseCSV reads a headed CSV stream. Rows must have the header's width;
// a ragged row or bad quoting fails the whole source. A leading UTF-8 BOM is
// dropped before tokenizing so a quoted first header cell still parses.
func parseCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Source: name, Err: ErrEmptyInput}
	}
	if err != nil {
		return nil, csvParseError(name, err)
	}

	t := newTable(name, header)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvParseError(name, err)
		}
		line, _ := cr.FieldPos(0)
		t.appendRow(line, row)
	}
	return t, nil
}

func csvParseError(name string, err error) *ParseError {
	pe := &ParseError{Source: name, Err: err}
	var cerr *csv.ParseError
	if errors.As(err, &cerr) {
		pe.Row = cerr.Line
		pe.Err = cerr.Err
	}
	return pe
}
