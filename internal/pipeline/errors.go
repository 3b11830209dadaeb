package pipeline

import (
	"errors"
	"fmt"
)

// Stage labels used in error reporting and latency accounting.
const (
	stageOCR        = "ocr"
	stageParse      = "parsing"
	stageValidation = "validation"
	stagePersist    = "persistence"
)

// ExtractionError marks a failed external extraction call (OCR or LLM)
// after the retry budget is exhausted.
type ExtractionError struct {
	Backend string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction via %s failed: %v", e.Backend, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseError marks a structural parse failure of upstream output.
// It is not retryable.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse failed: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError marks a stage-store write failure. The pipeline
// never continues past an unpersisted stage it depends on for replay.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist stage %s failed: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PipelineError is the structured, caller-visible failure for one
// invoice. It is always a data object, never a bare stack trace.
type PipelineError struct {
	InvoiceID string   `json:"invoice_id"`
	Status    string   `json:"status"`
	Message   string   `json:"error"`
	Stage     string   `json:"stage"`
	Persisted []string `json:"persisted_stages,omitempty"`
	cause     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("invoice %s failed at %s: %s", e.InvoiceID, e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.cause }

func newPipelineError(invoiceID, stage string, persisted []string, cause error) *PipelineError {
	return &PipelineError{
		InvoiceID: invoiceID,
		Status:    "error",
		Message:   cause.Error(),
		Stage:     stage,
		Persisted: persisted,
		cause:     cause,
	}
}

// AsPipelineError extracts the structured failure from an error chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	ok := errors.As(err, &pe)
	return pe, ok
}
