package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/finvoice/internal/etl"
	"github.com/MeKo-Tech/finvoice/internal/invoice"
	"github.com/MeKo-Tech/finvoice/internal/llm"
	"github.com/MeKo-Tech/finvoice/internal/ocr"
	"github.com/MeKo-Tech/finvoice/internal/validate"
)

// validatedSnapshot is the payload persisted for the validated stage:
// the invoice together with its validation outcome.
type validatedSnapshot struct {
	StructuredInvoice *invoice.StructuredInvoice `json:"structured_invoice"`
	Validation        *validate.Result           `json:"validation"`
	FallbackUsed      bool                       `json:"fallback_used"`
}

// Process runs one invoice image through the full pipeline. An empty
// invoiceID gets a generated one. Stages run strictly sequentially;
// each successful stage is persisted before the next one starts. The
// returned error, if any, is always a *PipelineError carrying the
// stages persisted so far, so cancelled or failed runs never lose
// completed work.
func (o *Orchestrator) Process(ctx context.Context, invoiceID string, imageBytes []byte) (*Result, error) {
	if invoiceID == "" {
		invoiceID = uuid.NewString()
	}

	state := StatePending
	latency := Latency{}
	totalStart := time.Now()
	var persisted []string

	fail := func(stage string, cause error) (*Result, error) {
		state = StateError
		latency.record(latTotal, totalStart)
		o.metrics.countInvoice("error")
		o.logger.Error("invoice pipeline failed",
			"invoice_id", invoiceID, "stage", stage, "state", state, "error", cause)
		return nil, newPipelineError(invoiceID, stage, persisted, cause)
	}

	// OCR, the only retried stage.
	ocrStart := time.Now()
	payload, attempts, err := o.runOCR(ctx, imageBytes)
	latency.record(latOCR, ocrStart)
	o.metrics.observeStage(stageOCR, ocrStart)
	if attempts > 1 {
		o.metrics.retriesTotal.Add(float64(attempts - 1))
	}
	if err != nil {
		return fail(stageOCR, &ExtractionError{Backend: o.backend.Name(), Err: err})
	}

	if _, err := o.store.Store(etl.StageRawOCR, invoiceID, payload); err != nil {
		return fail(stagePersist, &PersistenceError{Stage: string(etl.StageRawOCR), Err: err})
	}
	persisted = append(persisted, string(etl.StageRawOCR))
	state = state.next()

	if cerr := ctx.Err(); cerr != nil {
		return fail(stageParse, cerr)
	}

	// Parse: LLM extraction first when configured, heuristic otherwise.
	parseStart := time.Now()
	inv, err := o.runParse(ctx, payload)
	latency.record(latParse, parseStart)
	o.metrics.observeStage(stageParse, parseStart)
	if err != nil {
		return fail(stageParse, err)
	}
	inv.ID = invoiceID

	if _, err := o.store.Store(etl.StageParsed, invoiceID, inv); err != nil {
		return fail(stagePersist, &PersistenceError{Stage: string(etl.StageParsed), Err: err})
	}
	persisted = append(persisted, string(etl.StageParsed))
	state = state.next()

	if cerr := ctx.Err(); cerr != nil {
		return fail(stageValidation, cerr)
	}

	// Validation always produces a result; the agent path may also
	// yield a corrected invoice.
	// FallbackUsed distinguishes agent-validated from rule-validated
	// results; an extractor falling back to the heuristic parser is
	// reported through logs and metrics, not this flag.
	valStart := time.Now()
	inv, validation, agentUsed := o.runValidation(ctx, invoiceID, inv, &persisted)
	fallbackUsed := o.agent != nil && !agentUsed
	latency.record(latValidation, valStart)
	o.metrics.observeStage(stageValidation, valStart)

	snapshot := validatedSnapshot{StructuredInvoice: inv, Validation: validation, FallbackUsed: fallbackUsed}
	if _, err := o.store.Store(etl.StageValidated, invoiceID, snapshot); err != nil {
		return fail(stagePersist, &PersistenceError{Stage: string(etl.StageValidated), Err: err})
	}
	persisted = append(persisted, string(etl.StageValidated))
	state = state.next()

	state = state.next()
	latency.record(latTotal, totalStart)

	res := &Result{
		InvoiceID:         invoiceID,
		StructuredInvoice: inv,
		Validation:        validation,
		Confidence:        validation.OverallConfidence,
		LatencyMS:         latency,
		FallbackUsed:      fallbackUsed,
		State:             state,
	}
	o.metrics.countInvoice("done")
	o.metrics.observeResult(res)
	o.logger.Info("invoice processed",
		"invoice_id", invoiceID,
		"state", state,
		"passed", validation.Passed,
		"confidence", validation.OverallConfidence,
		"fallback_used", fallbackUsed,
		"total_ms", latency[latTotal])
	return res, nil
}

// runOCR calls the backend under the retry budget and reports the
// number of attempts made.
func (o *Orchestrator) runOCR(ctx context.Context, imageBytes []byte) (*ocr.Payload, int, error) {
	var payload *ocr.Payload
	attempts := 0
	err := withRetry(ctx, o.cfg.Retry, func() error {
		attempts++
		p, derr := o.backend.Detect(ctx, imageBytes)
		if derr != nil {
			o.logger.Warn("ocr attempt failed",
				"backend", o.backend.Name(), "attempt", attempts, "error", derr)
			return derr
		}
		payload = p
		return nil
	})
	return payload, attempts, err
}

// runParse produces the structured invoice, preferring the LLM
// extractor and falling back to the heuristic parser on any failure.
// That fallback is counted and logged but does not mark the result:
// the result-level flag is reserved for the validation path.
func (o *Orchestrator) runParse(ctx context.Context, payload *ocr.Payload) (*invoice.StructuredInvoice, error) {
	if o.extractor != nil {
		inv, err := o.extractor.Extract(ctx, ocr.FullText(payload))
		if err == nil && inv != nil {
			return inv, nil
		}
		o.logger.Warn("llm extraction failed, using heuristic parser",
			"extractor", o.extractor.Name(), "error", err)
		o.metrics.countFallback("extractor")
	}

	return o.parser.Parse(ocr.Normalize(payload))
}

// runValidation reviews the invoice through the agent when configured,
// falling back to the rule-based validator. A corrected invoice coming
// back from the agent is persisted as the corrected stage. The third
// return reports whether the agent path was used.
func (o *Orchestrator) runValidation(
	ctx context.Context,
	invoiceID string,
	inv *invoice.StructuredInvoice,
	persisted *[]string,
) (*invoice.StructuredInvoice, *validate.Result, bool) {
	if o.agent != nil {
		report, err := o.agent.Review(ctx, inv)
		if err == nil && report != nil {
			if report.ValidatedInvoice != nil {
				inv = report.ValidatedInvoice
				inv.ID = invoiceID
				if _, serr := o.store.Store(etl.StageCorrected, invoiceID, inv); serr == nil {
					*persisted = append(*persisted, string(etl.StageCorrected))
				} else {
					o.logger.Warn("persisting corrected stage failed",
						"invoice_id", invoiceID, "error", serr)
				}
			}
			return inv, o.agentResult(inv, report), true
		}
		o.logger.Warn("agent validation failed, using rule-based validator",
			"agent", o.agent.Name(), "error", err)
		o.metrics.countFallback("agent")
	}
	return inv, o.validator.Validate(inv), false
}

// agentResult merges the agent's verdict with the deterministic
// arithmetic record so downstream consumers always see both.
func (o *Orchestrator) agentResult(inv *invoice.StructuredInvoice, report *llm.AgentReport) *validate.Result {
	ruleResult := o.validator.Validate(inv)
	res := &validate.Result{
		Passed:            report.Validation.OK,
		Errors:            report.Validation.Errors,
		Warnings:          ruleResult.Warnings,
		Arithmetic:        ruleResult.Arithmetic,
		ConfidenceScores:  report.FieldConfidences,
		OverallConfidence: ruleResult.OverallConfidence,
	}
	if len(res.ConfidenceScores) == 0 {
		res.ConfidenceScores = ruleResult.ConfidenceScores
	}
	return res
}

// StoreCorrected persists a human-edited invoice as the corrected
// stage, returning the snapshot location.
func (o *Orchestrator) StoreCorrected(invoiceID string, inv *invoice.StructuredInvoice) (string, error) {
	inv.ID = invoiceID
	return o.store.Store(etl.StageCorrected, invoiceID, inv)
}

// Trace returns every persisted stage for the invoice.
func (o *Orchestrator) Trace(invoiceID string) (map[etl.Stage]*etl.Envelope, error) {
	return o.store.LoadAll(invoiceID)
}
