package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// maxResponseBytes caps how much of a service response is read.
const maxResponseBytes = 4 << 20

// HTTPExtractor calls a remote extraction service that answers with an
// invoice-shaped JSON document.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

// NewHTTPExtractor creates an extractor posting OCR text to the given
// URL.
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPExtractor{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Extractor.
func (e *HTTPExtractor) Name() string { return "remote" }

// Extract implements Extractor.
func (e *HTTPExtractor) Extract(ctx context.Context, ocrText string) (*invoice.StructuredInvoice, error) {
	body, err := json.Marshal(map[string]string{"text": ocrText})
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	respBody, err := e.post(ctx, body)
	if err != nil {
		return nil, err
	}
	return ParseResponse(respBody)
}

func (e *HTTPExtractor) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// HTTPAgent calls a remote validation agent that answers with an
// AgentReport-shaped JSON document.
type HTTPAgent struct {
	url    string
	client *http.Client
}

// NewHTTPAgent creates an agent validator posting invoices to the
// given URL.
func NewHTTPAgent(url string, timeout time.Duration) *HTTPAgent {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPAgent{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements AgentValidator.
func (a *HTTPAgent) Name() string { return "remote" }

// Review implements AgentValidator.
func (a *HTTPAgent) Review(ctx context.Context, inv *invoice.StructuredInvoice) (*AgentReport, error) {
	body, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("build review request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build review request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("review request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent service returned status %d", resp.StatusCode)
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read review response: %w", err)
	}

	var report AgentReport
	if err := json.Unmarshal(respBody, &report); err != nil {
		return nil, fmt.Errorf("agent response is not valid JSON: %w", err)
	}
	return &report, nil
}
