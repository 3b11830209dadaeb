package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/finvoice/internal/etl"
	"github.com/MeKo-Tech/finvoice/internal/invoice"
	"github.com/MeKo-Tech/finvoice/internal/llm"
	"github.com/MeKo-Tech/finvoice/internal/ocr"
)

// stubBackend replays a fixed payload, optionally failing the first
// few calls. Safe for concurrent use.
type stubBackend struct {
	payload  *ocr.Payload
	failures int32
	calls    atomic.Int32
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Detect(_ context.Context, imageBytes []byte) (*ocr.Payload, error) {
	call := s.calls.Add(1)
	if call <= s.failures {
		return nil, errors.New("ocr flaked")
	}
	if string(imageBytes) == "bad" {
		return nil, errors.New("unreadable image")
	}
	if s.payload == nil {
		return nil, errors.New("ocr service down")
	}
	return s.payload, nil
}

type stubExtractor struct {
	inv *invoice.StructuredInvoice
	err error
}

func (s *stubExtractor) Name() string { return "stub-llm" }

func (s *stubExtractor) Extract(context.Context, string) (*invoice.StructuredInvoice, error) {
	return s.inv, s.err
}

type stubAgent struct {
	report *llm.AgentReport
	err    error
}

func (s *stubAgent) Name() string { return "stub-agent" }

func (s *stubAgent) Review(context.Context, *invoice.StructuredInvoice) (*llm.AgentReport, error) {
	return s.report, s.err
}

// samplePayload is a clean two-line-item invoice whose arithmetic
// reconciles exactly: 2x10 + 3x15 = 65, tax 6.50, total 71.50.
func samplePayload() *ocr.Payload {
	reg := func(text string, x, y, w, h float64) ocr.Region {
		return ocr.Region{BBox: ocr.BBox{X: x, Y: y, W: w, H: h}, Text: text, Confidence: 0.9}
	}
	return &ocr.Payload{
		Regions: []ocr.Region{
			reg("ACME Supplies Ltd", 40, 40, 200, 30),
			reg("12 Industrial Way", 40, 80, 180, 25),
			reg("Bill To: Globex Corp", 600, 60, 300, 30),
			reg("Invoice #2024-017", 600, 100, 260, 30),
			reg("Date: 2024-03-15", 600, 140, 230, 30),
			reg("Due: 2024-04-15", 600, 180, 220, 30),
			reg("Blue Widget", 80, 400, 140, 25),
			reg("2", 400, 400, 20, 25),
			reg("10.00", 520, 400, 60, 25),
			reg("20.00", 700, 400, 60, 25),
			reg("Red Widget", 80, 440, 140, 25),
			reg("3", 400, 440, 20, 25),
			reg("15.00", 520, 440, 60, 25),
			reg("45.00", 700, 440, 60, 25),
			reg("Subtotal: 65.00", 80, 700, 180, 25),
			reg("Tax: 6.50", 80, 740, 140, 25),
			reg("Total: 71.50", 780, 900, 140, 30),
		},
		Meta: ocr.Meta{Backend: "stub"},
	}
}

func testOrchestrator(t *testing.T, b *Builder) *Orchestrator {
	t.Helper()
	o, err := b.WithStageDir(t.TempDir()).
		WithRetry(RetryConfig{Attempts: 3, Base: time.Millisecond}).
		Build()
	require.NoError(t, err)
	return o
}

func TestProcessHappyPath(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	res, err := o.Process(context.Background(), "inv-1", []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "inv-1", res.InvoiceID)
	assert.Equal(t, StateDone, res.State)
	assert.False(t, res.FallbackUsed)

	require.NotNil(t, res.StructuredInvoice)
	inv := res.StructuredInvoice
	assert.Equal(t, "ACME Supplies Ltd", inv.Vendor)
	assert.Equal(t, "Globex Corp", inv.Client)
	assert.Equal(t, "2024-017", inv.InvoiceNumber)
	assert.Equal(t, "2024-03-15", inv.InvoiceDate)
	assert.Equal(t, "2024-04-15", inv.DueDate)
	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, "Blue Widget", inv.LineItems[0].Description)
	assert.True(t, inv.LineItems[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, inv.Summary.GrandTotal.Equal(decimal.RequireFromString("71.50")))

	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Passed, "errors: %v", res.Validation.Errors)
	assert.Positive(t, res.Confidence)

	for _, key := range []string{"ocr", "parse", "validation", "total"} {
		_, ok := res.LatencyMS[key]
		assert.True(t, ok, "latency key %q missing", key)
	}
}

func TestProcessPersistsAllStages(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	_, err := o.Process(context.Background(), "inv-2", []byte("img"))
	require.NoError(t, err)

	trace, err := o.Trace("inv-2")
	require.NoError(t, err)
	assert.Contains(t, trace, etl.StageRawOCR)
	assert.Contains(t, trace, etl.StageParsed)
	assert.Contains(t, trace, etl.StageValidated)
	assert.NotContains(t, trace, etl.StageCorrected)
}

func TestProcessGeneratesInvoiceID(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	res, err := o.Process(context.Background(), "", []byte("img"))
	require.NoError(t, err)
	_, err = uuid.Parse(res.InvoiceID)
	assert.NoError(t, err)
	assert.Equal(t, res.InvoiceID, res.StructuredInvoice.ID)
}

func TestProcessOCRFailureErrorContract(t *testing.T) {
	backend := &stubBackend{} // nil payload: every call fails
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	_, err := o.Process(context.Background(), "inv-3", []byte("img"))
	require.Error(t, err)

	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, "inv-3", pe.InvoiceID)
	assert.Equal(t, "error", pe.Status)
	assert.Equal(t, "ocr", pe.Stage)
	assert.Empty(t, pe.Persisted)

	var xe *ExtractionError
	assert.ErrorAs(t, err, &xe)
	assert.EqualValues(t, 3, backend.calls.Load(), "retry budget not exhausted")
}

func TestProcessRetryRecoversFromFlakyOCR(t *testing.T) {
	backend := &stubBackend{payload: samplePayload(), failures: 2}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	res, err := o.Process(context.Background(), "inv-4", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.EqualValues(t, 3, backend.calls.Load())
}

func TestProcessParseFailureKeepsRawOCR(t *testing.T) {
	backend := &stubBackend{payload: &ocr.Payload{Meta: ocr.Meta{Backend: "stub"}}}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	_, err := o.Process(context.Background(), "inv-5", []byte("img"))
	require.Error(t, err)

	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, "parsing", pe.Stage)
	assert.Equal(t, []string{"raw_ocr"}, pe.Persisted)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)

	env, err := o.store.Load(etl.StageRawOCR, "inv-5")
	require.NoError(t, err)
	assert.Equal(t, "inv-5", env.InvoiceID)
}

func TestProcessExtractorFailureFallsBackToHeuristic(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().
		WithOCR(backend).
		WithExtractor(&stubExtractor{err: llm.ErrUnavailable}))

	res, err := o.Process(context.Background(), "inv-6", []byte("img"))
	require.NoError(t, err)
	// The flag is reserved for the validation path; an extractor
	// falling back to the heuristic parser does not set it.
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "ACME Supplies Ltd", res.StructuredInvoice.Vendor)
	assert.NotNil(t, res.Validation)
}

func TestProcessExtractorFallbackWithHealthyAgent(t *testing.T) {
	agent := &stubAgent{report: &llm.AgentReport{
		Validation: llm.AgentVerdict{OK: true},
	}}
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().
		WithOCR(backend).
		WithExtractor(&stubExtractor{err: llm.ErrUnavailable}).
		WithAgent(agent))

	res, err := o.Process(context.Background(), "inv-6b", []byte("img"))
	require.NoError(t, err)

	// Validation was agent-based, so the result is not a fallback even
	// though the extractor fell back to heuristic parsing.
	assert.False(t, res.FallbackUsed)
	assert.True(t, res.Validation.Passed)
	assert.Equal(t, "ACME Supplies Ltd", res.StructuredInvoice.Vendor)
}

func TestProcessExtractorSuccessSkipsHeuristic(t *testing.T) {
	extracted := &invoice.StructuredInvoice{
		Vendor: "LLM Vendor",
		LineItems: []invoice.LineItem{{
			Description: "Service",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			LineTotal:   decimal.RequireFromString("100.00"),
		}},
		Summary: invoice.FinancialSummary{
			Subtotal:   decimal.RequireFromString("100.00"),
			GrandTotal: decimal.RequireFromString("100.00"),
		},
	}
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().
		WithOCR(backend).
		WithExtractor(&stubExtractor{inv: extracted}))

	res, err := o.Process(context.Background(), "inv-7", []byte("img"))
	require.NoError(t, err)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "LLM Vendor", res.StructuredInvoice.Vendor)
	assert.Equal(t, "inv-7", res.StructuredInvoice.ID)
}

func TestProcessAgentFailureFallsBackToRuleValidation(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().
		WithOCR(backend).
		WithAgent(&stubAgent{err: errors.New("agent timeout")}))

	res, err := o.Process(context.Background(), "inv-8", []byte("img"))
	require.NoError(t, err)

	assert.True(t, res.FallbackUsed)
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Passed)
	for _, region := range []string{"vendor", "client", "line_items", "arithmetic"} {
		assert.Contains(t, res.Validation.ConfidenceScores, region)
	}
}

func TestProcessAgentCorrectionPersistsCorrectedStage(t *testing.T) {
	corrected := &invoice.StructuredInvoice{
		Vendor: "ACME Supplies Ltd.",
		Client: "Globex Corporation",
		LineItems: []invoice.LineItem{{
			Description: "Blue Widget",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("10.00"),
			LineTotal:   decimal.RequireFromString("20.00"),
		}},
		Summary: invoice.FinancialSummary{
			Subtotal:   decimal.RequireFromString("20.00"),
			GrandTotal: decimal.RequireFromString("20.00"),
		},
	}
	agent := &stubAgent{report: &llm.AgentReport{
		ValidatedInvoice: corrected,
		Validation:       llm.AgentVerdict{OK: true},
		FieldConfidences: map[string]float64{"vendor": 0.99},
	}}
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend).WithAgent(agent))

	res, err := o.Process(context.Background(), "inv-9", []byte("img"))
	require.NoError(t, err)

	assert.False(t, res.FallbackUsed)
	assert.True(t, res.Validation.Passed)
	assert.Equal(t, "ACME Supplies Ltd.", res.StructuredInvoice.Vendor)
	assert.Equal(t, map[string]float64{"vendor": 0.99}, res.Validation.ConfidenceScores)

	trace, err := o.Trace("inv-9")
	require.NoError(t, err)
	assert.Contains(t, trace, etl.StageCorrected)
}

func TestProcessCancelledContext(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Process(ctx, "inv-10", []byte("img"))
	require.Error(t, err)
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, "error", pe.Status)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreCorrectedRoundTrip(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().WithOCR(backend))

	edited := &invoice.StructuredInvoice{Vendor: "Edited Vendor"}
	loc, err := o.StoreCorrected("inv-11", edited)
	require.NoError(t, err)
	assert.NotEmpty(t, loc)

	env, err := o.store.Load(etl.StageCorrected, "inv-11")
	require.NoError(t, err)
	assert.Equal(t, etl.StageCorrected, env.Stage)
}
