package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is wrapped by a ParseError when a source has no header row.
var ErrEmptyInput = errors.New("no header row")

// UnsupportedFormatError reports a format hint that is neither delimited text
// nor a spreadsheet.
type UnsupportedFormatError struct {
	Source string
	Hint   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported file format %q (expected .csv, .xlsx, .xlsm or .xls)", e.Source, e.Hint)
}

// SchemaValidationError reports required columns absent from a source. Found
// lists every column the source does have.
type SchemaValidationError struct {
	Source  string
	Missing []string
	Found   []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: missing expected columns [%s]; found [%s]",
		e.Source, strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// ParseError reports malformed content. Row is the 1-based source row
// (the header is row 1) and is 0 when the failure is not tied to a row.
type ParseError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %s", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError reports key values that occur more than once in a
// dataset whose key must be unique.
type DuplicateKeyError struct {
	Source string
	Column string
	Keys   []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate %s values [%s]", e.Source, e.Column, strings.Join(e.Keys, ", "))
}
