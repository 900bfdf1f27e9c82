package spreadsheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func parseExcel(data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0] // first sheet only

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	headers := rows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	doc := &Document{Headers: headers}

	for ri, record := range rows[1:] {
		line := ri + 2
		if allBlank(record) {
			continue
		}
		cells := make(map[string]Cell, len(headers))
		for ci, h := range headers {
			if h == "" {
				continue
			}
			var raw string
			if ci < len(record) {
				raw = record[ci]
			}
			cells[h] = excelCell(f, sheet, ci, line, raw)
		}
		doc.Rows = append(doc.Rows, Row{Line: line, Cells: cells})
	}
	return doc, nil
}

// excelCell classifies one raw cell value. Date-formatted numeric cells become
// date cells (serials resolved by the workbook engine), plain numerics become
// number cells, everything else stays text.
func excelCell(f *excelize.File, sheet string, col, row int, raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{Kind: CellEmpty}
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Cell{Kind: CellText, Text: raw}
	}
	if cellHasDateFormat(f, sheet, col, row) {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return Cell{Kind: CellDate, Date: t}
		}
	}
	return Cell{Kind: CellNumber, Number: serial}
}

func cellHasDateFormat(f *excelize.File, sheet string, col, row int) bool {
	axis, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if isBuiltInDateFmt(style.NumFmt) {
		return true
	}
	if style.CustomNumFmt != nil {
		return looksLikeDateFmt(*style.CustomNumFmt)
	}
	return false
}

// Built-in number format IDs that render as dates or times.
func isBuiltInDateFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

func looksLikeDateFmt(fmtCode string) bool {
	lower := strings.ToLower(fmtCode)
	return strings.ContainsAny(lower, "ymd") && !strings.Contains(lower, "[$")
}
