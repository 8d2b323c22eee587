package invoicer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

const placementEpsilon = 1e-9

func TestFitToPage(t *testing.T) {
	tests := []struct {
		name     string
		pxW, pxH int
		want     placement
	}{
		{
			// 190mm wide, 190mm tall, then scaled up uniformly until the
			// width hits the page edge.
			name: "square",
			pxW:  1000,
			pxH:  1000,
			want: placement{X: 0, Y: 43.5, W: 210, H: 210},
		},
		{
			// Height-bound: scaled until the height fills the page.
			name: "tall",
			pxW:  500,
			pxH:  2000,
			want: placement{X: 67.875, Y: 0, W: 74.25, H: 297},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fitToPage(tt.pxW, tt.pxH)
			if err != nil {
				t.Fatalf("fitToPage() error = %v", err)
			}
			for _, v := range []struct {
				name      string
				got, want float64
			}{
				{"X", got.X, tt.want.X},
				{"Y", got.Y, tt.want.Y},
				{"W", got.W, tt.want.W},
				{"H", got.H, tt.want.H},
			} {
				if math.Abs(v.got-v.want) > placementEpsilon {
					t.Errorf("%s = %v, want %v", v.name, v.got, v.want)
				}
			}
		})
	}
}

func TestFitToPageNeverOverflows(t *testing.T) {
	for _, dims := range [][2]int{
		{1588, 2246}, // A4 viewport at 2x
		{100, 10000},
		{10000, 100},
		{1, 1},
	} {
		got, err := fitToPage(dims[0], dims[1])
		if err != nil {
			t.Fatalf("fitToPage(%v) error = %v", dims, err)
		}

		if got.W > pageWidthMM+placementEpsilon || got.H > pageHeightMM+placementEpsilon {
			t.Errorf("fitToPage(%v) = %+v exceeds the page", dims, got)
		}
		if got.X < -placementEpsilon || got.Y < -placementEpsilon {
			t.Errorf("fitToPage(%v) = %+v places off-page", dims, got)
		}

		// Centered both ways.
		if math.Abs(got.X-(pageWidthMM-got.W)/2) > placementEpsilon {
			t.Errorf("fitToPage(%v) X not centered: %+v", dims, got)
		}
		if math.Abs(got.Y-(pageHeightMM-got.H)/2) > placementEpsilon {
			t.Errorf("fitToPage(%v) Y not centered: %+v", dims, got)
		}

		// Uniform scaling preserves the captured aspect ratio.
		wantRatio := float64(dims[0]) / float64(dims[1])
		if math.Abs(got.W/got.H-wantRatio) > 1e-6 {
			t.Errorf("fitToPage(%v) distorted aspect ratio: %+v", dims, got)
		}
	}
}

func TestFitToPageRejectsEmptyImage(t *testing.T) {
	for _, dims := range [][2]int{{0, 100}, {100, 0}, {-1, 100}} {
		if _, err := fitToPage(dims[0], dims[1]); !errors.Is(err, ErrBadCapture) {
			t.Errorf("fitToPage(%v) error = %v, want ErrBadCapture", dims, err)
		}
	}
}

// encodeTestPNG produces a small valid PNG for assembler and service tests.
func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestPNGDimensions(t *testing.T) {
	data := encodeTestPNG(t, 7, 13)

	w, h, err := pngDimensions(data)
	if err != nil {
		t.Fatalf("pngDimensions() error = %v", err)
	}
	if w != 7 || h != 13 {
		t.Errorf("pngDimensions() = %dx%d, want 7x13", w, h)
	}
}

func TestPNGDimensionsRejectsGarbage(t *testing.T) {
	if _, _, err := pngDimensions([]byte("not a png")); !errors.Is(err, ErrBadCapture) {
		t.Errorf("pngDimensions() error = %v, want ErrBadCapture", err)
	}
}

func TestGofpdfAssembler(t *testing.T) {
	data := encodeTestPNG(t, 20, 30)
	place, err := fitToPage(20, 30)
	if err != nil {
		t.Fatalf("fitToPage() error = %v", err)
	}

	pdf, err := gofpdfAssembler{}.Assemble(data, place)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
}

func TestGofpdfAssemblerRejectsGarbage(t *testing.T) {
	if _, err := (gofpdfAssembler{}).Assemble([]byte("not a png"), placement{W: 10, H: 10}); err == nil {
		t.Error("Assemble() with invalid PNG: want error, got nil")
	}
}
