package pipeline

import (
	"time"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
	"github.com/MeKo-Tech/finvoice/internal/validate"
)

// Latency map keys, part of the exposed result contract.
const (
	latOCR        = "ocr"
	latParse      = "parse"
	latValidation = "validation"
	latTotal      = "total"
)

// Latency records elapsed milliseconds per stage plus the total.
type Latency map[string]int64

func (l Latency) record(stage string, start time.Time) {
	l[stage] = time.Since(start).Milliseconds()
}

// Result is the pipeline output contract handed verbatim to the
// external HTTP layer.
type Result struct {
	InvoiceID         string                     `json:"invoice_id"`
	StructuredInvoice *invoice.StructuredInvoice `json:"structured_invoice"`
	Validation        *validate.Result           `json:"validation"`
	Confidence        float64                    `json:"confidence"`
	LatencyMS         Latency                    `json:"latency_ms"`
	// FallbackUsed reports that a configured validation agent failed
	// and the rule-based validator produced the result instead.
	FallbackUsed bool  `json:"fallback_used"`
	State        State `json:"state"`
}
