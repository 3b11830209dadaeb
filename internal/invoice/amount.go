package invoice

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// ParseAmount extracts a decimal amount from an OCR'd numeric string.
// It tolerates currency symbols, surrounding text noise, thousands
// separators and both point and comma decimal marks ("$1,200.00",
// "1.234,56" and "1200.0" all parse to the same value family).
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := stripNonNumeric(norm.NFKC.String(text))
	if cleaned == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The later separator is the decimal mark, the other groups thousands.
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		// A lone comma is a decimal mark when it leaves 1-2 trailing
		// digits, a thousands separator otherwise.
		if len(cleaned)-lastComma-1 <= 2 && strings.Count(cleaned, ",") == 1 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastDot >= 0 && strings.Count(cleaned, ".") > 1:
		// Multiple dots: all but the last are thousands separators.
		cleaned = strings.Replace(cleaned, ".", "", strings.Count(cleaned, ".")-1)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ContainsAmount reports whether an amount can be extracted from the
// text. Unlike IsNumeric it accepts surrounding words, so labeled lines
// like "Total 5.28" qualify while bare labels do not.
func ContainsAmount(text string) bool {
	_, ok := ParseAmount(text)
	return ok
}

// stripNonNumeric keeps digits, separators and a leading minus sign,
// dropping currency symbols and any other decoration.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".,")
}

// dateFormats lists the date layouts accepted across OCR'd invoices.
// Order matters: ISO first, then day-first European layouts, then
// month-first US layouts.
var dateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// FindDate locates and parses the first date occurring anywhere inside
// the text, for lines like "Due: 2024-04-15".
func FindDate(text string) (time.Time, bool) {
	match := datePattern.FindString(norm.NFKC.String(text))
	if match == "" {
		return time.Time{}, false
	}
	return ParseDate(match)
}

// ParseDate parses a date string against the accepted layouts.
func ParseDate(text string) (time.Time, bool) {
	t := strings.TrimSpace(norm.NFKC.String(text))
	if t == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
