// Package loader turns uploaded byte streams into validated tables and typed
// order, customer and product records.
//
// Load detects the format from the source's extension hint, parses it and
// checks the required columns. Columns beyond the required set are kept.
// The Decode functions then convert a validated table into typed records;
// this is where order statuses are normalized to models.Status.
package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var errNoRequiredColumns = errors.New("loader: required column set is empty")

// Load parses src and verifies that every column in required is present.
//
// It returns *UnsupportedFormatError for an unknown format hint,
// *ParseError for malformed content and *SchemaValidationError when required
// columns are missing.
func Load(ctx context.Context, src Source, required []string) (*Table, error) {
	if len(required) == 0 {
		return nil, errNoRequiredColumns
	}
	if src.Reader == nil {
		return nil, fmt.Errorf("loader: source %q has no reader", src.Name)
	}

	format, err := DetectFormat(src.hint())
	if err != nil {
		var ufe *UnsupportedFormatError
		if errors.As(err, &ufe) {
			ufe.Source = src.Name
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t *Table
	switch format {
	case FormatCSV:
		t, err = parseCSV(src.Name, src.Reader)
	case FormatXLSX:
		t, err = parseXLSX(src.Name, src.Reader)
	case FormatXLS:
		t, err = parseXLS(src.Name, src.Reader)
	}
	if err != nil {
		return nil, err
	}

	if missing := t.Missing(required); len(missing) > 0 {
		return nil, &SchemaValidationError{
			Source:  src.Name,
			Missing: missing,
			Found:   slices.Clone(t.Columns),
		}
	}
	return t, nil
}
