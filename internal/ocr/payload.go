// Package ocr is the boundary to the external OCR collaborator. The
// heterogeneous upstream payload shapes are converted here, once, into
// the canonical element model; downstream code never sees raw OCR
// output.
package ocr

import (
	"encoding/json"
	"fmt"
)

// BBox is an upstream bounding box in (x, y, w, h) form. Backends emit
// it either as a four-element array or as an object; both decode here.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// UnmarshalJSON accepts [x,y,w,h] arrays and {x,y,w,h} objects.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 4 {
			return fmt.Errorf("bbox array has %d elements, want 4", len(arr))
		}
		b.X, b.Y, b.W, b.H = arr[0], arr[1], arr[2], arr[3]
		return nil
	}
	type plain BBox
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bbox is neither array nor object: %w", err)
	}
	*b = BBox(obj)
	return nil
}

// MarshalJSON always emits the array form.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.W, b.H})
}

// Region is one detected text region from the OCR backend.
type Region struct {
	Type       string  `json:"type,omitempty"`
	BBox       BBox    `json:"bbox"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	PageIndex  int     `json:"page_index"` // defaults to 0 when absent
}

// Meta carries backend identification and timing.
type Meta struct {
	Backend   string `json:"backend"`
	LatencyMS int64  `json:"latency_ms"`
}

// Payload is the raw OCR detection result. Tables and Raw are optional
// and may be absent entirely.
type Payload struct {
	Text    string            `json:"text"`
	Regions []Region          `json:"regions"`
	Tables  []json.RawMessage `json:"tables,omitempty"`
	Raw     json.RawMessage   `json:"raw,omitempty"`
	Meta    Meta              `json:"meta"`
}

// DecodePayload parses a backend response body.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode ocr payload: %w", err)
	}
	return &p, nil
}
