// Package spreadsheet turns uploaded CSV/Excel documents into header-keyed
// rows of tagged cell values. Structural problems in individual rows are
// recorded and skipped; only an unreadable file is an error.
package spreadsheet

import (
	"errors"
	"fmt"
	"strings"
)

const MaxFileBytes = 10 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file exceeds 10MB limit")
	ErrEmptyFile       = errors.New("file has no header row")
)

// SupportedExt reports whether the filename carries an extension we parse.
func SupportedExt(fileName string) bool {
	lower := strings.ToLower(fileName)
	return strings.HasSuffix(lower, ".csv") ||
		strings.HasSuffix(lower, ".xlsx") ||
		strings.HasSuffix(lower, ".xls")
}

// Parse branches on the filename extension. The first row is always treated
// as headers.
func Parse(fileName string, data []byte) (*Document, error) {
	if len(data) > MaxFileBytes {
		return nil, ErrFileTooLarge
	}
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(data)
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return parseExcel(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileName)
}
