package invoicer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/manal-catering/invoicer/internal/fileutil"
)

// rasterCapturer abstracts raster capture to allow testing without a browser.
type rasterCapturer interface {
	Capture(ctx context.Context, htmlContent string) ([]byte, error)
	Close() error
}

// Compile-time interface check
var _ rasterCapturer = (*rodCapturer)(nil)

// Capture geometry. The viewport matches A4 portrait at 96dpi so the layout
// renders at its natural print proportions; the device scale factor
// oversamples the raster for print sharpness.
const (
	viewportWidthPx  = 794
	viewportHeightPx = 1123
	oversampleFactor = 2

	// captureSelector identifies the invoice region in the rendered page.
	captureSelector = "#invoice"
)

// rodCapturer captures the rendered invoice as a PNG using headless Chrome.
// Rod automatically downloads Chromium on first run if not found.
type rodCapturer struct {
	browser *rod.Browser
	timeout time.Duration
}

// newRodCapturer creates a rodCapturer with the given timeout.
func newRodCapturer(timeout time.Duration) *rodCapturer {
	return &rodCapturer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (r *rodCapturer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *rodCapturer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Capture writes the HTML to a temp file, loads it in headless Chrome, and
// screenshots the invoice region as a PNG. Returns explicit errors instead
// of panicking when browser operations fail.
func (r *rodCapturer) Capture(ctx context.Context, htmlContent string) ([]byte, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Oversample the raster at the A4 viewport
	metrics := &proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidthPx,
		Height:            viewportHeightPx,
		DeviceScaleFactor: oversampleFactor,
		Mobile:            false,
	}
	if err := metrics.Call(page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	el, err := page.Timeout(timeout).Element(captureSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrRegionNotFound, captureSelector, err)
	}

	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	return png, nil
}
