package invoice

import "github.com/MeKo-Tech/finvoice/internal/geometry"

// RegionType identifies a semantic zone of a document.
type RegionType string

const (
	RegionVendor    RegionType = "vendor"
	RegionClient    RegionType = "client"
	RegionLineItems RegionType = "line_items"
	RegionTax       RegionType = "tax"
	RegionTotals    RegionType = "totals"
)

// RegionTypes lists all region types in classification order.
func RegionTypes() []RegionType {
	return []RegionType{RegionVendor, RegionClient, RegionLineItems, RegionTax, RegionTotals}
}

// DocumentRegion groups the elements assigned to one semantic zone.
// It owns its elements by value; the box is the union of element boxes.
type DocumentRegion struct {
	Type     RegionType    `json:"region_type"`
	Elements []TextElement `json:"elements"`
	Box      geometry.Box  `json:"box"`
}

// NewDocumentRegion builds a region over the given elements, computing
// the bounding box as the union of the element boxes.
func NewDocumentRegion(rt RegionType, elements []TextElement) DocumentRegion {
	var box geometry.Box
	for _, el := range elements {
		box = box.Union(el.Box)
	}
	return DocumentRegion{Type: rt, Elements: elements, Box: box}
}

// Text joins the region's element texts in stored order.
func (r DocumentRegion) Text() string {
	parts := make([]string, 0, len(r.Elements))
	for _, el := range r.Elements {
		parts = append(parts, el.Text)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
