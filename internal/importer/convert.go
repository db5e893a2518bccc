package importer

// convert.go provides type conversion for spreadsheet cells to PostgreSQL
// types.
//
// These functions handle the messy reality of district SIS exports:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Thousands separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//   - Common CSV artifacts (BOM, stray quotes)
//
// All ToPg* functions return pgtype values with Valid=false for
// empty/invalid input, allowing the database to store NULLs.

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years that
// would land more than this many years in the future are assumed to be in
// the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// ToPgBool converts a string to pgtype.Bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ToPgBool(s string) pgtype.Bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ParseInt converts a cell to an int, tolerating thousands separators and a
// trailing ".0" that Excel adds to numeric columns.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".0")

	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return i, true
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// trims whitespace and BOM, strips Excel formula prefixes (="..."), and
// removes surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// normalizeKey lower-cases and trims a value for natural-key comparison.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HeaderIndex maps normalized header names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := normalizeKey(CleanCell(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}
