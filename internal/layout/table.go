package layout

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// quantityCeiling bounds the plausible-quantity heuristic: the leading
// numeric of a row is only taken as a quantity below this value.
var quantityCeiling = decimal.NewFromInt(1000)

// Reconstructor rebuilds a tabular structure from the elements of a
// line-item region.
type Reconstructor struct {
	cfg Config
}

// NewReconstructor creates a reconstructor with the given configuration.
func NewReconstructor(cfg Config) *Reconstructor {
	return &Reconstructor{cfg: cfg}
}

// Reconstruct clusters elements into rows of cell texts. An element
// joins the current row while its y1 is within RowThreshold of the
// running cluster anchor; within a row, cells are ordered by ascending
// x1. The first row typically carries the column headers and is kept in
// the output.
func (r *Reconstructor) Reconstruct(elements []invoice.TextElement) [][]string {
	if len(elements) == 0 {
		return nil
	}
	sorted := sortReadingOrder(elements)

	var rows [][]invoice.TextElement
	var current []invoice.TextElement
	anchor := sorted[0].Box.MinY
	for _, el := range sorted {
		if len(current) > 0 && el.Box.MinY-anchor >= r.cfg.RowThreshold {
			rows = append(rows, current)
			current = nil
		}
		current = append(current, el)
		anchor = el.Box.MinY
	}
	rows = append(rows, current)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Box.MinX < row[j].Box.MinX
		})
		cells := make([]string, 0, len(row))
		for _, el := range row {
			cells = append(cells, el.Text)
		}
		out = append(out, cells)
	}
	return out
}

// InferColumns derives lower-cased column names from a header row.
func InferColumns(header []string) []string {
	cols := make([]string, 0, len(header))
	for _, cell := range header {
		cols = append(cols, invoice.Fold(cell))
	}
	return cols
}

// ParseLineItems converts reconstructed rows into line items. The first
// row is skipped as a header when it contains no numeric cell. Within a
// data row the last numeric cell is the line total; with two or more
// numerics the second-to-last is the unit price and the leading numeric
// is the quantity when it is plausibly small. Rows without any
// descriptive text are discarded.
func ParseLineItems(rows [][]string) []invoice.LineItem {
	if len(rows) == 0 {
		return nil
	}

	start := 0
	if isHeaderRow(rows[0]) {
		start = 1
	}

	var items []invoice.LineItem
	for _, row := range rows[start:] {
		if item, ok := parseRow(row); ok {
			items = append(items, item)
		}
	}
	return items
}

// isHeaderRow reports whether a row looks like a column header: no cell
// parses as numeric.
func isHeaderRow(row []string) bool {
	for _, cell := range row {
		if invoice.IsNumeric(cell) {
			return false
		}
	}
	return len(row) > 0
}

func parseRow(row []string) (invoice.LineItem, bool) {
	var textCells []string
	var numerics []decimal.Decimal
	for _, cell := range row {
		if invoice.IsNumeric(cell) {
			if v, ok := invoice.ParseAmount(cell); ok {
				numerics = append(numerics, v)
				continue
			}
		}
		textCells = append(textCells, cell)
	}

	description := strings.TrimSpace(strings.Join(textCells, " "))
	if description == "" {
		return invoice.LineItem{}, false
	}

	item := invoice.LineItem{Description: description}
	switch n := len(numerics); {
	case n == 0:
	case n == 1:
		item.UnitPrice = numerics[0]
	default:
		item.LineTotal = numerics[n-1]
		item.UnitPrice = numerics[n-2]
		if n >= 3 && numerics[0].LessThan(quantityCeiling) {
			item.Quantity = numerics[0]
		}
	}
	return item, true
}
