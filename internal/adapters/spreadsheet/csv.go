package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeText strips a UTF-8 BOM and falls back to a single-byte Latin-1
// decode when the bytes are not valid UTF-8. Legacy exports (EUC-KR saved by
// old spreadsheet tools) at least survive the round trip instead of failing
// the whole upload; the result is best-effort, not guaranteed correct.
func decodeText(b []byte) string {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return string(b)
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func parseCSV(data []byte) (*Document, error) {
	r := csv.NewReader(strings.NewReader(decodeText(data)))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // tolerate ragged rows; we pad below

	headers, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	doc := &Document{Headers: headers}
	line := 1
	for {
		line++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One corrupt row must never abort the batch.
			doc.RowErrors = append(doc.RowErrors, RowError{Line: line, Err: err})
			continue
		}
		if allBlank(record) {
			continue
		}
		doc.Rows = append(doc.Rows, rowFromStrings(line, headers, record))
	}
	return doc, nil
}

func allBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func rowFromStrings(line int, headers, record []string) Row {
	cells := make(map[string]Cell, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			cells[h] = textCell(record[i])
		} else {
			cells[h] = Cell{Kind: CellEmpty}
		}
	}
	return Row{Line: line, Cells: cells}
}
