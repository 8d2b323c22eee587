package invoicer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Service orchestrates the invoice export pipeline: derivation, layout
// rendering, raster capture, and PDF assembly. A Service is safe for
// concurrent use; overlapping exports are rejected rather than queued.
type Service struct {
	cfg       serviceConfig
	layout    layoutRenderer
	capturer  rasterCapturer
	assembler pdfAssembler
	exporting atomic.Bool
}

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout time.Duration
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the raster capture timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoicer: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// New creates a Service with default configuration.
// Use options to customize behavior (e.g., WithTimeout).
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg: serviceConfig{timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.layout == nil {
		layout, err := newHTMLLayout()
		if err != nil {
			return nil, err
		}
		s.layout = layout
	}

	// Create capturer and assembler if not injected (e.g., by tests)
	if s.capturer == nil {
		s.capturer = newRodCapturer(s.cfg.timeout)
	}
	if s.assembler == nil {
		s.assembler = gofpdfAssembler{}
	}

	return s, nil
}

// Export runs the full pipeline and returns the PDF as bytes. Only one
// export may be in flight at a time; a concurrent call fails fast with
// ErrExportInFlight so a double-triggered export produces exactly one file.
// The context is used for cancellation and timeout. On any failure no
// partial output is returned.
func (s *Service) Export(ctx context.Context, rec InvoiceRecord) ([]byte, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInFlight
	}
	defer s.exporting.Store(false)

	totals := Derive(rec)

	htmlContent, err := s.layout.Render(rec, totals)
	if err != nil {
		return nil, err
	}

	pngData, err := s.capturer.Capture(ctx, htmlContent)
	if err != nil {
		return nil, err
	}

	w, h, err := pngDimensions(pngData)
	if err != nil {
		return nil, err
	}

	place, err := fitToPage(w, h)
	if err != nil {
		return nil, err
	}

	return s.assembler.Assemble(pngData, place)
}

// Filename returns the download name for the record's exported PDF.
func (s *Service) Filename(rec InvoiceRecord) string {
	return fmt.Sprintf("invoice-%s.pdf", rec.Meta.Number)
}

// Close releases resources (headless Chrome browser).
func (s *Service) Close() error {
	if s.capturer != nil {
		return s.capturer.Close()
	}
	return nil
}
