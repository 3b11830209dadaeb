package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// InvoiceLine is one rendered line item row.
type InvoiceLine struct {
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// InvoiceSpec describes the synthetic invoice page to render. Zero
// fields are simply not drawn.
type InvoiceSpec struct {
	Vendor        string
	VendorAddress string
	Client        string
	Number        string
	DueDate       string
	Lines         []InvoiceLine
	Subtotal      string
	Tax           string
	Total         string

	Width    int
	Height   int
	Rotation float64 // degrees, counter-clockwise
}

// SampleInvoice returns the canonical two-line invoice used across the
// test suite. Its amounts reconcile: 2*10.00 + 3*15.00 = 65.00,
// 65.00 + 6.50 = 71.50.
func SampleInvoice() InvoiceSpec {
	return InvoiceSpec{
		Vendor:        "ACME Supplies Ltd",
		VendorAddress: "12 Industrial Way",
		Client:        "Bill To: Globex Corp",
		Number:        "Invoice #2024-017",
		DueDate:       "Due: 2024-04-15",
		Lines: []InvoiceLine{
			{Description: "Blue Widget", Quantity: "2", UnitPrice: "10.00", Total: "20.00"},
			{Description: "Red Widget", Quantity: "3", UnitPrice: "15.00", Total: "45.00"},
		},
		Subtotal: "Subtotal 65.00",
		Tax:      "Tax 6.50",
		Total:    "Total 71.50",
		Width:    1000,
		Height:   1400,
	}
}

// RenderInvoice draws the spec onto a white page. The layout mirrors a
// real invoice: vendor top-left, client and number top-right, line
// items in the middle band, totals bottom-right.
func RenderInvoice(spec InvoiceSpec) (image.Image, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %dx%d", spec.Width, spec.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
	}
	at := func(xf, yf float64, text string) {
		if text == "" {
			return
		}
		drawer.Dot = fixed.P(int(xf*float64(spec.Width)), int(yf*float64(spec.Height)))
		drawer.DrawString(text)
	}

	at(0.05, 0.05, spec.Vendor)
	at(0.05, 0.09, spec.VendorAddress)
	at(0.62, 0.06, spec.Client)
	at(0.62, 0.10, spec.Number)
	at(0.62, 0.14, spec.DueDate)

	rowY := 0.40
	for _, line := range spec.Lines {
		at(0.08, rowY, line.Description)
		at(0.44, rowY, line.Quantity)
		at(0.56, rowY, line.UnitPrice)
		at(0.76, rowY, line.Total)
		rowY += 0.04
	}

	at(0.08, 0.72, spec.Subtotal)
	at(0.08, 0.76, spec.Tax)
	at(0.72, 0.90, spec.Total)

	if spec.Rotation != 0 {
		return imaging.Rotate(img, spec.Rotation, color.White), nil
	}
	return img, nil
}

// InvoicePNG renders the sample invoice and returns the encoded PNG.
func InvoicePNG(t *testing.T) []byte {
	t.Helper()

	img, err := RenderInvoice(SampleInvoice())
	require.NoError(t, err)
	return EncodePNG(t, img)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// WriteInvoicePNG renders the sample invoice to a file and returns its
// path.
func WriteInvoicePNG(t *testing.T, dir, name string) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, InvoicePNG(t), 0o600))
	return path
}
