package ocr

import (
	"strings"

	"github.com/MeKo-Tech/finvoice/internal/geometry"
	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// Normalize converts a raw OCR payload into canonical text elements.
// This is the single conversion point: whitespace-only regions are
// dropped, (x,y,w,h) boxes become min/max form and element types are
// derived from the text predicates.
func Normalize(p *Payload) []invoice.TextElement {
	if p == nil {
		return nil
	}
	elements := make([]invoice.TextElement, 0, len(p.Regions))
	for _, region := range p.Regions {
		text := strings.TrimSpace(region.Text)
		if text == "" {
			continue
		}
		elements = append(elements, invoice.TextElement{
			Text: text,
			Box: geometry.NewBox(
				region.BBox.X,
				region.BBox.Y,
				region.BBox.X+region.BBox.W,
				region.BBox.Y+region.BBox.H,
			),
			Type:       invoice.ClassifyText(text),
			Confidence: region.Confidence,
			PageIndex:  region.PageIndex,
		})
	}
	return elements
}

// FullText returns the payload's document text, synthesizing it from
// regions when the backend omits the flat text field.
func FullText(p *Payload) string {
	if p == nil {
		return ""
	}
	if p.Text != "" {
		return p.Text
	}
	parts := make([]string, 0, len(p.Regions))
	for _, region := range p.Regions {
		if t := strings.TrimSpace(region.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
