package layout

import (
	"sort"

	"github.com/MeKo-Tech/finvoice/internal/geometry"
	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// maxAnchorNumerics bounds how many leading numeric elements anchor the
// line-item proximity test.
const maxAnchorNumerics = 10

// Classifier assigns text elements to semantic document regions.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given configuration.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify groups elements into semantic regions. It is deterministic
// and side-effect free. Five positional/keyword rules apply in fixed
// order (vendor, client, line items, tax, totals); the first matching
// rule wins and claims the element, so no element appears in two
// regions. Elements matching no rule are dropped: ungrouped text is
// assumed to be page furniture.
func (c *Classifier) Classify(elements []invoice.TextElement) map[invoice.RegionType]invoice.DocumentRegion {
	if len(elements) == 0 {
		return map[invoice.RegionType]invoice.DocumentRegion{}
	}

	sorted := sortReadingOrder(elements)
	pageW, pageH := pageExtent(sorted)

	assigned := make([]bool, len(sorted))
	buckets := make(map[invoice.RegionType][]invoice.TextElement)

	claim := func(rt invoice.RegionType, match func(invoice.TextElement) bool) {
		for i, el := range sorted {
			if assigned[i] {
				continue
			}
			if match(el) {
				assigned[i] = true
				buckets[rt] = append(buckets[rt], el)
			}
		}
	}

	claim(invoice.RegionVendor, func(el invoice.TextElement) bool {
		ctr := el.Box.Center()
		return ctr.X < c.cfg.VendorXFrac*pageW && ctr.Y < c.cfg.VendorYFrac*pageH
	})

	// The positional client test is confined to the header band;
	// without it every element right of midline would be claimed here
	// and the totals quadrant rule could never fire.
	claim(invoice.RegionClient, func(el invoice.TextElement) bool {
		ctr := el.Box.Center()
		inHeader := ctr.X > 0.5*pageW && ctr.Y < c.cfg.VendorYFrac*pageH
		return inHeader || invoice.IsClientKeyword(el.Text)
	})

	// Line items bracket the densest vertical cluster of numeric
	// elements. Evaluate the cluster over the still-unassigned set so
	// header and client numerics already claimed do not skew it.
	span, anchors, hasCluster := c.numericCluster(sorted, assigned)
	if hasCluster {
		claim(invoice.RegionLineItems, func(el invoice.TextElement) bool {
			ctr := el.Box.Center()
			if ctr.Y < span.MinY || ctr.Y > span.MaxY {
				return false
			}
			for _, anchor := range anchors {
				if el.Box.Near(anchor, c.cfg.ProximityThreshold) {
					return true
				}
			}
			return false
		})
	}

	claim(invoice.RegionTax, func(el invoice.TextElement) bool {
		return invoice.IsTaxKeyword(el.Text)
	})

	// The keyword branch needs ContainsAmount, not IsNumeric: a labeled
	// line like "Total 5.28" carries the keyword's letters, so the
	// strict full-string numeric predicate can never accept it.
	claim(invoice.RegionTotals, func(el invoice.TextElement) bool {
		ctr := el.Box.Center()
		inQuadrant := ctr.X > c.cfg.TotalsXFrac*pageW && ctr.Y > c.cfg.TotalsYFrac*pageH
		return inQuadrant || (invoice.IsTotalKeyword(el.Text) && invoice.ContainsAmount(el.Text))
	})

	regions := make(map[invoice.RegionType]invoice.DocumentRegion, len(buckets))
	for rt, els := range buckets {
		regions[rt] = invoice.NewDocumentRegion(rt, els)
	}
	return regions
}

// numericCluster locates the densest vertical cluster of numeric
// elements among the unassigned set. It returns the Y-span bracketing
// the cluster and the boxes of the first anchor numerics in reading
// order.
func (c *Classifier) numericCluster(
	sorted []invoice.TextElement, assigned []bool,
) (span geometry.Box, anchors []geometry.Box, ok bool) {
	var numerics []invoice.TextElement
	for i, el := range sorted {
		if assigned[i] {
			continue
		}
		if invoice.IsNumeric(el.Text) {
			numerics = append(numerics, el)
		}
	}
	if len(numerics) == 0 {
		return geometry.Box{}, nil, false
	}

	// Cluster by vertical gaps between consecutive centers.
	byY := make([]invoice.TextElement, len(numerics))
	copy(byY, numerics)
	sort.SliceStable(byY, func(i, j int) bool {
		return byY[i].Box.Center().Y < byY[j].Box.Center().Y
	})

	bestStart, bestLen := 0, 1
	start := 0
	for i := 1; i <= len(byY); i++ {
		if i < len(byY) && byY[i].Box.Center().Y-byY[i-1].Box.Center().Y <= c.cfg.NumericClusterGap {
			continue
		}
		if i-start > bestLen {
			bestStart, bestLen = start, i-start
		}
		start = i
	}

	cluster := byY[bestStart : bestStart+bestLen]
	for _, el := range cluster {
		span = span.Union(el.Box)
	}

	for i, el := range numerics {
		if i >= maxAnchorNumerics {
			break
		}
		anchors = append(anchors, el.Box)
	}
	return span, anchors, true
}

// sortReadingOrder returns a copy of elements ordered by (y1, x1).
func sortReadingOrder(elements []invoice.TextElement) []invoice.TextElement {
	out := make([]invoice.TextElement, len(elements))
	copy(out, elements)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Box.MinY != out[j].Box.MinY {
			return out[i].Box.MinY < out[j].Box.MinY
		}
		return out[i].Box.MinX < out[j].Box.MinX
	})
	return out
}

// pageExtent infers page dimensions as the maximum x2/y2 over elements.
func pageExtent(elements []invoice.TextElement) (w, h float64) {
	for _, el := range elements {
		if el.Box.MaxX > w {
			w = el.Box.MaxX
		}
		if el.Box.MaxY > h {
			h = el.Box.MaxY
		}
	}
	return w, h
}
