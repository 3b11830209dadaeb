package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Backend is the OCR collaborator contract: raw image bytes in,
// detection payload out. Implementations are blocking and must honor
// context cancellation.
type Backend interface {
	Name() string
	Detect(ctx context.Context, imageBytes []byte) (*Payload, error)
}

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 32 << 20

// HTTPBackend calls a remote OCR service over plain HTTP.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// NewHTTPBackend creates a backend posting to the given detect URL.
func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPBackend{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Backend.
func (b *HTTPBackend) Name() string { return "remote" }

// Detect implements Backend.
func (b *HTTPBackend) Detect(ctx context.Context, imageBytes []byte) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read ocr response: %w", err)
	}

	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	if payload.Meta.Backend == "" {
		payload.Meta.Backend = b.Name()
	}
	if payload.Meta.LatencyMS == 0 {
		payload.Meta.LatencyMS = time.Since(start).Milliseconds()
	}
	return payload, nil
}
