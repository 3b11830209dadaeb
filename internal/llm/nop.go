package llm

import (
	"context"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// NopExtractor is the stand-in for an unconfigured extraction service.
// Every call fails with ErrUnavailable.
type NopExtractor struct{}

func (NopExtractor) Name() string { return "nop" }

func (NopExtractor) Extract(context.Context, string) (*invoice.StructuredInvoice, error) {
	return nil, ErrUnavailable
}

// NopAgent is the stand-in for an unconfigured validation agent.
type NopAgent struct{}

func (NopAgent) Name() string { return "nop" }

func (NopAgent) Review(context.Context, *invoice.StructuredInvoice) (*AgentReport, error) {
	return nil, ErrUnavailable
}
