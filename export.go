package invoicer

import (
	"bytes"
	"fmt"
	"image/png"
	"math"

	"github.com/jung-kurt/gofpdf"
)

// A4 portrait geometry in millimetres.
const (
	pageWidthMM        = 210.0
	pageHeightMM       = 297.0
	horizontalMarginMM = 10.0
)

// placement describes where the captured raster lands on the page, in
// millimetres from the top-left corner.
type placement struct {
	X, Y, W, H float64
}

// fitToPage computes the single-page placement for a raster of the given
// pixel dimensions. The image takes the page width minus the side margins,
// its height follows from the captured aspect ratio, and a uniform scale
// factor then fits the whole image inside one page. The result is centered
// both ways. The image is never cropped and never spans a second page.
func fitToPage(pxW, pxH int) (placement, error) {
	if pxW <= 0 || pxH <= 0 {
		return placement{}, fmt.Errorf("%w: %dx%d", ErrBadCapture, pxW, pxH)
	}

	imgW := pageWidthMM - 2*horizontalMarginMM
	imgH := float64(pxH) * imgW / float64(pxW)

	scale := math.Min(pageWidthMM/imgW, pageHeightMM/imgH)
	finalW := imgW * scale
	finalH := imgH * scale

	return placement{
		X: (pageWidthMM - finalW) / 2,
		Y: (pageHeightMM - finalH) / 2,
		W: finalW,
		H: finalH,
	}, nil
}

// pngDimensions reads the pixel dimensions from a PNG header without
// decoding the full image.
func pngDimensions(data []byte) (w, h int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadCapture, err)
	}
	return cfg.Width, cfg.Height, nil
}

// pdfAssembler abstracts PDF assembly to allow testing without gofpdf.
type pdfAssembler interface {
	Assemble(pngData []byte, p placement) ([]byte, error)
}

// Compile-time interface check
var _ pdfAssembler = (*gofpdfAssembler)(nil)

// gofpdfAssembler embeds the captured raster into a one-page A4 PDF.
type gofpdfAssembler struct{}

// Assemble produces the final PDF: a new A4 portrait document with the PNG
// placed at the computed position. The document carries no text layer and no
// metadata beyond gofpdf defaults.
func (gofpdfAssembler) Assemble(pngData []byte, p placement) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("invoice", opts, bytes.NewReader(pngData))
	doc.ImageOptions("invoice", p.X, p.Y, p.W, p.H, false, opts, 0, "")

	if doc.Err() {
		return nil, fmt.Errorf("%w: %v", ErrPDFAssembly, doc.Error())
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFAssembly, err)
	}
	return buf.Bytes(), nil
}
