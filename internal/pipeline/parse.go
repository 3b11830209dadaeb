package pipeline

import (
	"errors"
	"regexp"
	"strings"

	"github.com/MeKo-Tech/finvoice/internal/aggregate"
	"github.com/MeKo-Tech/finvoice/internal/invoice"
	"github.com/MeKo-Tech/finvoice/internal/layout"
)

// Parser is the rule-based structured-data extractor: region
// classification, table reconstruction and keyword-value pairing. It is
// the deterministic fallback when LLM extraction is unavailable or
// returns an unusable response.
type Parser struct {
	classifier    *layout.Classifier
	reconstructor *layout.Reconstructor
}

// NewParser creates a parser over the given layout configuration.
func NewParser(cfg layout.Config) *Parser {
	return &Parser{
		classifier:    layout.NewClassifier(cfg),
		reconstructor: layout.NewReconstructor(cfg),
	}
}

var invoiceNumberPattern = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9/-]+)`)

// Parse builds a structured invoice from canonical OCR elements.
// It fails only structurally (no elements at all); sparse documents
// still yield an invoice and leave judgement to validation.
func (p *Parser) Parse(elements []invoice.TextElement) (*invoice.StructuredInvoice, error) {
	if len(elements) == 0 {
		return nil, &ParseError{Err: errors.New("no text elements to parse")}
	}

	regions := p.classifier.Classify(elements)
	inv := &invoice.StructuredInvoice{Metadata: map[string]string{}}

	if vendor, ok := regions[invoice.RegionVendor]; ok {
		inv.Vendor = vendorName(vendor)
	}
	if client, ok := regions[invoice.RegionClient]; ok {
		p.fillClientInfo(inv, client)
	}
	if items, ok := regions[invoice.RegionLineItems]; ok {
		rows := p.reconstructor.Reconstruct(items.Elements)
		inv.LineItems = layout.ParseLineItems(rows)
	}
	p.fillSummary(inv, regions)

	inv.Summary.Currency = detectCurrency(elements)
	inv.Confidence = meanConfidence(elements)
	inv.Metadata["extraction"] = "heuristic"
	return inv, nil
}

// vendorName takes the first non-numeric line of the vendor block.
func vendorName(region invoice.DocumentRegion) string {
	for _, el := range region.Elements {
		if !invoice.IsNumeric(el.Text) {
			return el.Text
		}
	}
	return ""
}

func (p *Parser) fillClientInfo(inv *invoice.StructuredInvoice, region invoice.DocumentRegion) {
	var clientParts []string
	for _, el := range region.Elements {
		folded := invoice.Fold(el.Text)

		if m := invoiceNumberPattern.FindStringSubmatch(el.Text); m != nil {
			inv.InvoiceNumber = m[1]
		}
		if when, ok := invoice.FindDate(el.Text); ok {
			if strings.Contains(folded, "due") {
				inv.DueDate = when.Format("2006-01-02")
			} else if inv.InvoiceDate == "" {
				inv.InvoiceDate = when.Format("2006-01-02")
			}
			continue
		}
		if strings.HasPrefix(folded, "bill to") || strings.HasPrefix(folded, "customer") ||
			strings.HasPrefix(folded, "client") {
			name := strings.TrimSpace(trimKeywordPrefix(el.Text))
			if name != "" {
				clientParts = append(clientParts, name)
			}
		}
	}
	inv.Client = strings.Join(clientParts, " ")
}

var clientPrefixPattern = regexp.MustCompile(`(?i)^(bill\s*to|customer|client)\s*:?\s*`)

func trimKeywordPrefix(text string) string {
	return clientPrefixPattern.ReplaceAllString(text, "")
}

// fillSummary pairs keyword lines with their amounts and aggregates
// grand-total candidates from the tax and totals regions.
func (p *Parser) fillSummary(inv *invoice.StructuredInvoice, regions map[invoice.RegionType]invoice.DocumentRegion) {
	var totalCandidates []aggregate.FieldCandidate

	if tax, ok := regions[invoice.RegionTax]; ok {
		for _, el := range tax.Elements {
			folded := invoice.Fold(el.Text)
			amount, hasAmount := invoice.ParseAmount(el.Text)
			if !hasAmount {
				continue
			}
			switch {
			case strings.Contains(folded, "subtotal"):
				inv.Summary.Subtotal = amount
			case strings.Contains(folded, "discount"):
				inv.Summary.Discount = amount
			case strings.Contains(folded, "tax") || strings.Contains(folded, "vat") ||
				strings.Contains(folded, "gst"):
				inv.Summary.TaxAmount = amount
			}
		}
	}

	if totals, ok := regions[invoice.RegionTotals]; ok {
		for _, el := range totals.Elements {
			if amount, ok := invoice.ParseAmount(el.Text); ok {
				totalCandidates = append(totalCandidates, aggregate.FieldCandidate{
					Value:      amount.String(),
					Confidence: el.Confidence,
				})
			}
		}
	}
	if best := aggregate.Aggregate(totalCandidates); best.Value != "" {
		if amount, ok := invoice.ParseAmount(best.Value); ok {
			inv.Summary.GrandTotal = amount
		}
	}
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

func detectCurrency(elements []invoice.TextElement) string {
	for _, el := range elements {
		for _, cur := range currencySymbols {
			if strings.Contains(el.Text, cur.symbol) {
				return cur.code
			}
		}
	}
	return ""
}

func meanConfidence(elements []invoice.TextElement) float64 {
	if len(elements) == 0 {
		return 0
	}
	var sum float64
	for _, el := range elements {
		sum += el.Confidence
	}
	return sum / float64(len(elements))
}
