package llm

import (
	"context"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// AgentVerdict is the agent's validation judgement.
type AgentVerdict struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// AgentReport is the validation agent's response: an optionally
// corrected invoice, its verdict and per-field confidences.
type AgentReport struct {
	ValidatedInvoice *invoice.StructuredInvoice `json:"validated_invoice,omitempty"`
	Validation       AgentVerdict               `json:"validation"`
	FieldConfidences map[string]float64         `json:"field_confidences,omitempty"`
}

// AgentValidator is the optional LLM-based semantic critique
// collaborator. Any failure (timeout, malformed response, absent
// service) makes the orchestrator fall back to the rule-based
// financial validator.
type AgentValidator interface {
	Name() string
	Review(ctx context.Context, inv *invoice.StructuredInvoice) (*AgentReport, error)
}
