package app

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"review_ingest/internal/adapters/spreadsheet"
)

// excelEpochMin is the spreadsheet serial for 1970-01-01 (days since
// 1899-12-30). Serials above it are treated as dates; smaller numerics are
// almost certainly not dates in review exports. Heuristic constant carried
// over from the previous importer, kept configurable rather than re-derived.
const excelEpochMin = 25569

// Ordered string date patterns: ISO-style year-first variants, then day-first
// variants. First match wins.
var datePatterns = []struct {
	re       *regexp.Regexp
	dayFirst bool
}{
	{regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), false},
	{regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`), false},
	{regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`), false},
	{regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`), true},
	{regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`), true},
	{regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`), true},
}

// Free-form layouts tried as a last resort.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"2006년 1월 2일",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// coerceDate resolves a cell to a review date. Tried in order: native date
// value, spreadsheet epoch serial, the regex patterns above, free-form
// layouts. Anything underivable (or in the future) defaults to now.
func coerceDate(c spreadsheet.Cell, serialMin float64, now time.Time) time.Time {
	if t, ok := deriveDate(c, serialMin); ok && !t.After(now) {
		return t
	}
	return now
}

func deriveDate(c spreadsheet.Cell, serialMin float64) (time.Time, bool) {
	switch c.Kind {
	case spreadsheet.CellDate:
		return c.Date, true
	case spreadsheet.CellNumber:
		return serialDate(c.Number, serialMin)
	case spreadsheet.CellText:
		s := strings.TrimSpace(c.Text)
		// CSV exports carry spreadsheet serials as plain numeric strings
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f, serialMin)
		}
		return parseDateString(s)
	}
	return time.Time{}, false
}

func serialDate(serial, serialMin float64) (time.Time, bool) {
	if serial <= serialMin {
		return time.Time{}, false
	}
	secs := int64((serial - excelEpochMin) * 86400)
	return time.Unix(secs, 0).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var year, month, day int
		if p.dayFirst {
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		} else {
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		}
		if t, ok := makeDate(year, month, day); ok {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// makeDate rejects tuples the calendar would silently normalize
// (e.g. month 13 or day 32).
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
