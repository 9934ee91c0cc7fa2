package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Source is one uploaded dataset. Format is an extension hint such as
// ".csv"; when empty it is taken from Name.
type Source struct {
	Name   string
	Format string
	Reader io.Reader
}

func (s Source) hint() string {
	if s.Format != "" {
		return s.Format
	}
	return filepath.Ext(s.Name)
}

// DetectFormat maps an extension hint to a Format. The leading dot is
// optional and case is ignored. An unknown hint yields
// *UnsupportedFormatError with Source left for the caller to fill.
func DetectFormat(hint string) (Format, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	h = strings.TrimPrefix(h, ".")
	switch h {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	case "xls":
		return FormatXLS, nil
	default:
		return "", &UnsupportedFormatError{Hint: hint}
	}
}

// OpenFile opens path as a Source. The caller closes the returned file.
func OpenFile(path string) (Source, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return Source{Name: filepath.Base(path), Reader: f}, f, nil
}
