// Package validate applies deterministic arithmetic and business-rule
// checks to a structured invoice. Findings are data, not errors: the
// validator never fails, it accumulates.
package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// Config toggles individual checks and sets the arithmetic tolerance.
type Config struct {
	// Tolerance is the maximum absolute discrepancy, in currency units,
	// before an arithmetic check is flagged.
	Tolerance decimal.Decimal `mapstructure:"-" yaml:"-" json:"-"`

	LineArithmetic    bool `mapstructure:"line_arithmetic" yaml:"line_arithmetic" json:"line_arithmetic"`
	InvoiceArithmetic bool `mapstructure:"invoice_arithmetic" yaml:"invoice_arithmetic" json:"invoice_arithmetic"`
	LineSumSubtotal   bool `mapstructure:"line_sum_subtotal" yaml:"line_sum_subtotal" json:"line_sum_subtotal"`
	NonNegativity     bool `mapstructure:"non_negativity" yaml:"non_negativity" json:"non_negativity"`
	DateOrdering      bool `mapstructure:"date_ordering" yaml:"date_ordering" json:"date_ordering"`
	DuplicateItems    bool `mapstructure:"duplicate_items" yaml:"duplicate_items" json:"duplicate_items"`
}

// DefaultConfig enables every check with a 0.01 currency-unit tolerance.
func DefaultConfig() Config {
	return Config{
		Tolerance:         decimal.New(1, -2),
		LineArithmetic:    true,
		InvoiceArithmetic: true,
		LineSumSubtotal:   true,
		NonNegativity:     true,
		DateOrdering:      true,
		DuplicateItems:    true,
	}
}

// ArithmeticRecord captures the invoice-level reconciliation values.
// It is recorded even when the check passes so downstream confidence
// scoring can weigh the delta.
type ArithmeticRecord struct {
	Computed  decimal.Decimal `json:"computed"`
	Extracted decimal.Decimal `json:"extracted"`
	Delta     decimal.Decimal `json:"delta"`
}

// Result is the immutable outcome of validating one invoice.
type Result struct {
	Passed            bool               `json:"passed"`
	Errors            []string           `json:"errors"`
	Warnings          []string           `json:"warnings"`
	Arithmetic        ArithmeticRecord   `json:"arithmetic"`
	ConfidenceScores  map[string]float64 `json:"confidence_scores"`
	OverallConfidence float64            `json:"overall_confidence"`
}

// Validator runs the configured checks.
type Validator struct {
	cfg Config
}

// New creates a validator. A zero tolerance falls back to the default.
func New(cfg Config) *Validator {
	if cfg.Tolerance.IsZero() {
		cfg.Tolerance = decimal.New(1, -2)
	}
	return &Validator{cfg: cfg}
}

// Validate checks the invoice and returns the accumulated findings.
// It never returns an error: rule mismatches are first-class data.
func (v *Validator) Validate(inv *invoice.StructuredInvoice) *Result {
	res := &Result{
		Errors:   []string{},
		Warnings: []string{},
	}

	if len(inv.LineItems) == 0 {
		res.Warnings = append(res.Warnings, "no line items extracted")
	}

	if v.cfg.LineArithmetic {
		v.checkLineArithmetic(inv, res)
	}
	v.checkInvoiceArithmetic(inv, res)
	if v.cfg.LineSumSubtotal {
		v.checkLineSum(inv, res)
	}
	if v.cfg.NonNegativity {
		v.checkNonNegativity(inv, res)
	}
	if v.cfg.DateOrdering {
		v.checkDates(inv, res)
	}
	if v.cfg.DuplicateItems {
		v.checkDuplicates(inv, res)
	}

	res.Passed = len(res.Errors) == 0
	v.scoreConfidence(inv, res)
	return res
}

// checkLineArithmetic verifies quantity*unit_price against line_total
// for every item carrying all three values.
func (v *Validator) checkLineArithmetic(inv *invoice.StructuredInvoice, res *Result) {
	for i, item := range inv.LineItems {
		if item.Quantity.IsZero() || item.UnitPrice.IsZero() || item.LineTotal.IsZero() {
			continue
		}
		expected := item.Quantity.Mul(item.UnitPrice)
		delta := expected.Sub(item.LineTotal).Abs()
		if delta.GreaterThan(v.cfg.Tolerance) {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"line %d (%s): quantity %s x unit price %s = %s, extracted line total %s (delta %s)",
				i+1, item.Description, item.Quantity, item.UnitPrice, expected, item.LineTotal, delta))
		}
	}
}

// checkInvoiceArithmetic reconciles subtotal + tax - discount against
// the grand total. The record is always written, even when the check is
// toggled off or passes.
func (v *Validator) checkInvoiceArithmetic(inv *invoice.StructuredInvoice, res *Result) {
	s := inv.Summary
	computed := s.Subtotal.Add(s.TaxAmount).Sub(s.Discount)
	delta := computed.Sub(s.GrandTotal).Abs()
	res.Arithmetic = ArithmeticRecord{Computed: computed, Extracted: s.GrandTotal, Delta: delta}

	if v.cfg.InvoiceArithmetic && delta.GreaterThan(v.cfg.Tolerance) {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"invoice arithmetic: subtotal %s + tax %s - discount %s = %s, extracted grand total %s (delta %s)",
			s.Subtotal, s.TaxAmount, s.Discount, computed, s.GrandTotal, delta))
	}
}

// checkLineSum compares the sum of line totals against the subtotal.
// Extraction noise is expected here, so a mismatch is a warning.
func (v *Validator) checkLineSum(inv *invoice.StructuredInvoice, res *Result) {
	if len(inv.LineItems) == 0 {
		return
	}
	sum := decimal.Zero
	for _, item := range inv.LineItems {
		sum = sum.Add(item.LineTotal)
	}
	if sum.Sub(inv.Summary.Subtotal).Abs().GreaterThan(v.cfg.Tolerance) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"line totals sum to %s but subtotal is %s", sum, inv.Summary.Subtotal))
	}
}

func (v *Validator) checkNonNegativity(inv *invoice.StructuredInvoice, res *Result) {
	if inv.Summary.Subtotal.IsNegative() {
		res.Errors = append(res.Errors, fmt.Sprintf("negative subtotal %s", inv.Summary.Subtotal))
	}
	if inv.Summary.GrandTotal.IsNegative() {
		res.Errors = append(res.Errors, fmt.Sprintf("negative grand total %s", inv.Summary.GrandTotal))
	}
	for i, item := range inv.LineItems {
		if item.LineTotal.IsNegative() {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"line %d (%s): negative line total %s", i+1, item.Description, item.LineTotal))
		}
	}
}

func (v *Validator) checkDates(inv *invoice.StructuredInvoice, res *Result) {
	invoiceDate, dueDate, invOK, dueOK := inv.ParsedDates()
	if invOK && dueOK && dueDate.Before(invoiceDate) {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"due date %s precedes invoice date %s",
			dueDate.Format("2006-01-02"), invoiceDate.Format("2006-01-02")))
	}
	if invOK && invoiceDate.After(time.Now()) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"invoice date %s is in the future", invoiceDate.Format("2006-01-02")))
	}
}

func (v *Validator) checkDuplicates(inv *invoice.StructuredInvoice, res *Result) {
	seen := make(map[string]int)
	for i, item := range inv.LineItems {
		key := invoice.Fold(item.Description)
		if key == "" {
			continue
		}
		if first, dup := seen[key]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"duplicate line item %q (rows %d and %d)", item.Description, first+1, i+1))
			continue
		}
		seen[key] = i
	}
}
