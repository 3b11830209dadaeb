// Package invoice defines the canonical document model produced at the
// OCR boundary and consumed by layout analysis, aggregation and
// validation.
package invoice

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/finvoice/internal/geometry"
)

// ElementType classifies a text element by its textual content.
type ElementType string

const (
	ElementText    ElementType = "text"
	ElementNumeric ElementType = "numeric"
	ElementDate    ElementType = "date"
	ElementKeyword ElementType = "keyword"
)

// TextElement is the leaf unit produced by OCR: one token or line of
// text with its position and recognition confidence.
type TextElement struct {
	Text       string       `json:"text"`
	Box        geometry.Box `json:"box"`
	Type       ElementType  `json:"element_type"`
	Confidence float64      `json:"confidence"`
	PageIndex  int          `json:"page_index"`
}

var (
	// currencyPattern matches amounts with optional currency symbol,
	// thousands separators and decimal comma or point.
	currencyPattern = regexp.MustCompile(`^[\p{Sc}]?\s*-?(?:\d{1,3}(?:[.,\s]\d{3})+|\d+)(?:[.,]\d{1,4})?\s*[\p{Sc}]?$`)

	datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[./-]\d{1,2}[./-]\d{2,4})\b`)
)

var (
	totalKeywords  = []string{"total", "amount due", "balance due", "grand total"}
	clientKeywords = []string{"invoice", "bill to", "customer", "client", "due", "po number", "order"}
	taxKeywords    = []string{"tax", "vat", "gst", "discount", "subtotal"}
)

// Fold normalizes OCR text for predicate matching: NFKC folding,
// whitespace collapse and lower-casing.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// IsNumeric reports whether the text looks like a monetary or plain
// numeric value.
func IsNumeric(text string) bool {
	t := strings.TrimSpace(norm.NFKC.String(text))
	if t == "" {
		return false
	}
	return currencyPattern.MatchString(t)
}

// IsDate reports whether the text contains a recognizable date.
func IsDate(text string) bool {
	return datePattern.MatchString(norm.NFKC.String(text))
}

func containsAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// IsTotalKeyword reports whether the text names a document total.
func IsTotalKeyword(text string) bool {
	return containsAny(Fold(text), totalKeywords)
}

// IsClientKeyword reports whether the text belongs to the client or
// invoice-info block.
func IsClientKeyword(text string) bool {
	return containsAny(Fold(text), clientKeywords)
}

// IsTaxKeyword reports whether the text names a tax, discount or
// subtotal line.
func IsTaxKeyword(text string) bool {
	return containsAny(Fold(text), taxKeywords)
}

// ClassifyText derives the element type from the text content. The
// predicates above stay pure so classification can be recomputed at any
// point without relying on cached state.
func ClassifyText(text string) ElementType {
	switch {
	case IsNumeric(text):
		return ElementNumeric
	case IsDate(text):
		return ElementDate
	case IsTotalKeyword(text) || IsTaxKeyword(text) || IsClientKeyword(text):
		return ElementKeyword
	default:
		return ElementText
	}
}
