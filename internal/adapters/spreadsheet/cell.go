package spreadsheet

import (
	"strconv"
	"strings"
	"time"
)

// CellKind tags the loosely typed values that come out of untrusted source
// documents, so coercion downstream can switch exhaustively instead of
// guessing at runtime.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// IsBlank reports whether the cell is empty or all whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// String renders the cell for display and validation messages.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text)
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format("2006-01-02")
	}
	return ""
}

// Row is one data row keyed by the headers exactly as they appeared in the
// source document. Line is the 1-based position in the file, header included.
type Row struct {
	Line  int
	Cells map[string]Cell
}

// Lookup returns the cell under the given header, if the column exists.
func (r Row) Lookup(header string) (Cell, bool) {
	c, ok := r.Cells[header]
	return c, ok
}

// RowError records a row that failed to parse structurally. The row is
// skipped; it never aborts the batch.
type RowError struct {
	Line int
	Err  error
}

// Document is one parsed upload: headers in source order plus the data rows
// that survived parsing.
type Document struct {
	Headers   []string
	Rows      []Row
	RowErrors []RowError
}

func textCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}
