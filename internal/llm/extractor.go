// Package llm defines the ports to the optional LLM collaborators: the
// text-to-JSON invoice extractor and the semantic validation agent.
// Both are best-effort; any failure here is recovered by the
// orchestrator's deterministic fallbacks.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// ErrUnavailable marks a collaborator that is not configured or not
// reachable. The orchestrator treats it like any other failure and
// falls back.
var ErrUnavailable = errors.New("llm collaborator unavailable")

// Extractor turns OCR text into a structured invoice.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, ocrText string) (*invoice.StructuredInvoice, error)
}

// rawInvoice mirrors the expected LLM response shape with tolerant
// number fields: models emit numbers, quoted numbers and strings with
// thousands separators interchangeably.
type rawInvoice struct {
	Error         string `json:"error"`
	Vendor        string `json:"vendor"`
	Client        string `json:"client"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	LineItems     []struct {
		Description string `json:"description"`
		Quantity    any    `json:"quantity"`
		UnitPrice   any    `json:"unit_price"`
		LineTotal   any    `json:"line_total"`
	} `json:"line_items"`
	Summary struct {
		Subtotal   any    `json:"subtotal"`
		TaxRate    any    `json:"tax_rate"`
		TaxAmount  any    `json:"tax_amount"`
		Discount   any    `json:"discount"`
		GrandTotal any    `json:"grand_total"`
		Currency   string `json:"currency"`
	} `json:"financial_summary"`
	Confidence float64 `json:"confidence"`
}

// ParseResponse decodes an LLM response body into a structured invoice.
// Markdown code fences are stripped first. A response that is not JSON,
// carries an error marker, or lacks any invoice content is an
// extraction failure so the caller can fall back to rule-based parsing.
func ParseResponse(body []byte) (*invoice.StructuredInvoice, error) {
	cleaned := strings.TrimSpace(string(body))
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var raw rawInvoice
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("llm response is not valid JSON: %w", err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("llm returned error marker: %s", raw.Error)
	}

	inv := &invoice.StructuredInvoice{
		Vendor:        raw.Vendor,
		Client:        raw.Client,
		InvoiceNumber: raw.InvoiceNumber,
		InvoiceDate:   raw.InvoiceDate,
		DueDate:       raw.DueDate,
		Confidence:    raw.Confidence,
		Summary: invoice.FinancialSummary{
			Subtotal:   toDecimal(raw.Summary.Subtotal),
			TaxRate:    toDecimal(raw.Summary.TaxRate),
			TaxAmount:  toDecimal(raw.Summary.TaxAmount),
			Discount:   toDecimal(raw.Summary.Discount),
			GrandTotal: toDecimal(raw.Summary.GrandTotal),
			Currency:   raw.Summary.Currency,
		},
	}
	for _, item := range raw.LineItems {
		inv.LineItems = append(inv.LineItems, invoice.LineItem{
			Description: item.Description,
			Quantity:    toDecimal(item.Quantity),
			UnitPrice:   toDecimal(item.UnitPrice),
			LineTotal:   toDecimal(item.LineTotal),
		})
	}

	if inv.Vendor == "" && len(inv.LineItems) == 0 && inv.Summary.GrandTotal.IsZero() {
		return nil, errors.New("llm response carries no invoice content")
	}
	return inv, nil
}

// toDecimal converts a tolerant JSON number field to an exact decimal.
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		if d, ok := invoice.ParseAmount(val); ok {
			return d
		}
		return decimal.Zero
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
