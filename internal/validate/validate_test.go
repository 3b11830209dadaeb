package validate

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func happyInvoice(t *testing.T) *invoice.StructuredInvoice {
	t.Helper()
	return &invoice.StructuredInvoice{
		Vendor: "ACME Supplies",
		Client: "Globex Corp",
		LineItems: []invoice.LineItem{
			{Description: "Blue Widget", Quantity: dec(t, "2"), UnitPrice: dec(t, "10.00"), LineTotal: dec(t, "20.00")},
			{Description: "Red Widget", Quantity: dec(t, "3"), UnitPrice: dec(t, "15.00"), LineTotal: dec(t, "45.00")},
		},
		Summary: invoice.FinancialSummary{
			Subtotal:   dec(t, "65.00"),
			TaxAmount:  dec(t, "6.50"),
			GrandTotal: dec(t, "71.50"),
		},
	}
}

func TestValidateHappyPath(t *testing.T) {
	res := New(DefaultConfig()).Validate(happyInvoice(t))
	assert.True(t, res.Passed)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.True(t, res.Arithmetic.Delta.IsZero())
	assert.InDelta(t, 1.0, res.OverallConfidence, 1e-9)
}

func TestValidateToleranceBoundary(t *testing.T) {
	inv := &invoice.StructuredInvoice{
		Summary: invoice.FinancialSummary{
			Subtotal:   dec(t, "100.00"),
			TaxAmount:  dec(t, "10.00"),
			GrandTotal: dec(t, "110.005"),
		},
	}
	v := New(DefaultConfig())

	res := v.Validate(inv)
	assert.True(t, res.Passed, "delta 0.005 within tolerance 0.01: %v", res.Errors)

	inv.Summary.GrandTotal = dec(t, "110.02")
	res = v.Validate(inv)
	assert.False(t, res.Passed, "delta 0.02 exceeds tolerance 0.01")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "invoice arithmetic")
}

func TestValidateArithmeticAlwaysRecorded(t *testing.T) {
	inv := happyInvoice(t)
	res := New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Arithmetic.Computed.Equal(dec(t, "71.50")))
	assert.True(t, res.Arithmetic.Extracted.Equal(dec(t, "71.50")))

	// Recorded even with the check toggled off.
	cfg := DefaultConfig()
	cfg.InvoiceArithmetic = false
	inv.Summary.GrandTotal = dec(t, "99.99")
	res = New(cfg).Validate(inv)
	assert.True(t, res.Passed)
	assert.False(t, res.Arithmetic.Delta.IsZero())
}

func TestValidateLineArithmeticError(t *testing.T) {
	inv := happyInvoice(t)
	inv.LineItems[0].LineTotal = dec(t, "25.00")
	res := New(DefaultConfig()).Validate(inv)
	assert.False(t, res.Passed)
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "Blue Widget") {
			found = true
		}
	}
	assert.True(t, found, "error should name the failing item: %v", res.Errors)
}

func TestValidateNonNegativity(t *testing.T) {
	inv := happyInvoice(t)
	inv.LineItems = append(inv.LineItems, invoice.LineItem{
		Description: "Credit adjustment",
		LineTotal:   dec(t, "-5.00"),
	})
	res := New(DefaultConfig()).Validate(inv)
	assert.False(t, res.Passed)
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "Credit adjustment") && strings.Contains(e, "-5") {
			found = true
		}
	}
	assert.True(t, found, "negativity error should name the item: %v", res.Errors)
}

func TestValidateLineSumMismatchIsWarning(t *testing.T) {
	inv := happyInvoice(t)
	inv.Summary.Subtotal = dec(t, "60.00")
	inv.Summary.GrandTotal = dec(t, "66.50")
	res := New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Passed, "line-sum mismatch must stay a warning: %v", res.Errors)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "line totals sum")
}

func TestValidateDateOrdering(t *testing.T) {
	inv := happyInvoice(t)
	inv.InvoiceDate = "2024-03-15"
	inv.DueDate = "2024-03-01"
	res := New(DefaultConfig()).Validate(inv)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Errors[0], "precedes")

	// Unparseable due date: the check is skipped.
	inv.DueDate = "whenever"
	res = New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Passed)
}

func TestValidateFutureInvoiceDateIsWarning(t *testing.T) {
	inv := happyInvoice(t)
	inv.InvoiceDate = "2099-01-01"
	res := New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Passed)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "future")
}

func TestValidateDuplicateLineItems(t *testing.T) {
	inv := happyInvoice(t)
	inv.LineItems = append(inv.LineItems, invoice.LineItem{
		Description: "BLUE  widget",
		Quantity:    dec(t, "2"), UnitPrice: dec(t, "10.00"), LineTotal: dec(t, "20.00"),
	})
	inv.Summary.Subtotal = dec(t, "85.00")
	inv.Summary.TaxAmount = dec(t, "8.50")
	inv.Summary.GrandTotal = dec(t, "93.50")
	res := New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Passed)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "duplicate") {
			found = true
		}
	}
	assert.True(t, found, "expected duplicate warning: %v", res.Warnings)
}

func TestValidateNoiseOnlyReconciliation(t *testing.T) {
	// 100% OCR noise, no line items, but the numbers reconcile.
	inv := &invoice.StructuredInvoice{
		Summary: invoice.FinancialSummary{
			Subtotal:   dec(t, "4.98"),
			TaxAmount:  dec(t, "0.30"),
			GrandTotal: dec(t, "5.28"),
		},
	}
	res := New(DefaultConfig()).Validate(inv)
	assert.True(t, res.Passed)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "no line items") {
			found = true
		}
	}
	assert.True(t, found, "expected no-line-items warning: %v", res.Warnings)
}

func TestValidateNeverErrorsOnEmptyInvoice(t *testing.T) {
	res := New(DefaultConfig()).Validate(&invoice.StructuredInvoice{})
	assert.NotNil(t, res)
	assert.True(t, res.Passed)
}
