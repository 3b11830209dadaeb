package validate

import (
	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// Region weights for the overall confidence score. These constants are
// shared with historical extraction metrics and must not change, or
// scores stop being comparable across datasets.
const (
	weightVendor     = 0.1
	weightClient     = 0.2
	weightLineItems  = 0.4
	weightArithmetic = 0.3
)

// scoreConfidence fills in per-region confidence scores and the overall
// weighted confidence.
func (v *Validator) scoreConfidence(inv *invoice.StructuredInvoice, res *Result) {
	scores := map[string]float64{
		"vendor":     presenceScore(inv.Vendor),
		"client":     presenceScore(inv.Client),
		"line_items": lineItemsScore(inv, v.cfg.Tolerance),
		"arithmetic": arithmeticScore(res.Arithmetic),
	}
	res.ConfidenceScores = scores
	res.OverallConfidence = weightVendor*scores["vendor"] +
		weightClient*scores["client"] +
		weightLineItems*scores["line_items"] +
		weightArithmetic*scores["arithmetic"]
}

func presenceScore(s string) float64 {
	if s == "" {
		return 0
	}
	return 1
}

// lineItemsScore averages per-item completeness and arithmetic
// correctness: a fully reconciled item scores 1, a partially extracted
// item scores by field coverage, a failing item scores 0.
func lineItemsScore(inv *invoice.StructuredInvoice, tolerance decimal.Decimal) float64 {
	if len(inv.LineItems) == 0 {
		return 0
	}
	var sum float64
	for _, item := range inv.LineItems {
		sum += lineItemScore(item, tolerance)
	}
	return sum / float64(len(inv.LineItems))
}

func lineItemScore(item invoice.LineItem, tolerance decimal.Decimal) float64 {
	complete := !item.Quantity.IsZero() && !item.UnitPrice.IsZero() && !item.LineTotal.IsZero()
	if complete {
		delta := item.Quantity.Mul(item.UnitPrice).Sub(item.LineTotal).Abs()
		if delta.LessThanOrEqual(tolerance) {
			return 1
		}
		return 0
	}
	fields := 0
	if item.Description != "" {
		fields++
	}
	if !item.UnitPrice.IsZero() {
		fields++
	}
	if !item.LineTotal.IsZero() {
		fields++
	}
	return float64(fields) / 4
}

// arithmeticScore degrades linearly with the reconciliation delta
// relative to the extracted total.
func arithmeticScore(rec ArithmeticRecord) float64 {
	if rec.Delta.IsZero() {
		return 1
	}
	if rec.Extracted.IsZero() {
		return 0
	}
	ratio, _ := rec.Delta.Div(rec.Extracted.Abs()).Float64()
	score := 1 - ratio
	if score < 0 {
		return 0
	}
	return score
}
