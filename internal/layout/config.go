// Package layout groups OCR text elements into semantic document
// regions and reconstructs tabular line items from token clusters.
package layout

// Config holds tunables for the spatial heuristics.
type Config struct {
	// Vendor quadrant: center left of VendorXFrac*W and above VendorYFrac*H.
	VendorXFrac float64
	VendorYFrac float64

	// Totals quadrant: center right of TotalsXFrac*W and below TotalsYFrac*H.
	TotalsXFrac float64
	TotalsYFrac float64

	// RowThreshold is the maximum y1 delta (pixels) for an element to
	// join the running row cluster.
	RowThreshold float64

	// ProximityThreshold is the maximum center distance (pixels) to one
	// of the leading numeric elements for line-item membership.
	ProximityThreshold float64

	// NumericClusterGap is the maximum vertical gap (pixels) between
	// consecutive numeric elements within one density cluster.
	NumericClusterGap float64
}

// DefaultConfig returns the heuristic defaults.
func DefaultConfig() Config {
	return Config{
		VendorXFrac:        0.5,
		VendorYFrac:        0.3,
		TotalsXFrac:        0.6,
		TotalsYFrac:        0.7,
		RowThreshold:       12,
		ProximityThreshold: 300,
		NumericClusterGap:  48,
	}
}
