package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one row of the reconstructed line-item table. Monetary
// fields are exact decimals so validation never suffers cent-level
// float drift.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// FinancialSummary holds the document-level amounts.
type FinancialSummary struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Currency   string          `json:"currency"`
}

// StructuredInvoice is the canonical extraction output.
type StructuredInvoice struct {
	ID            string            `json:"invoice_id"`
	Vendor        string            `json:"vendor"`
	Client        string            `json:"client"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	InvoiceDate   string            `json:"invoice_date,omitempty"`
	DueDate       string            `json:"due_date,omitempty"`
	LineItems     []LineItem        `json:"line_items"`
	Summary       FinancialSummary  `json:"financial_summary"`
	Confidence    float64           `json:"confidence"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ParsedDates resolves invoice and due dates. The ok flags report
// whether each date parsed successfully.
func (inv *StructuredInvoice) ParsedDates() (invoiceDate, dueDate time.Time, invOK, dueOK bool) {
	invoiceDate, invOK = ParseDate(inv.InvoiceDate)
	dueDate, dueOK = ParseDate(inv.DueDate)
	return invoiceDate, dueDate, invOK, dueOK
}
