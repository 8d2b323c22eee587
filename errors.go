package invoicer

import "errors"

// Sentinel errors for library operations.
var (
	ErrExportInFlight = errors.New("an export is already in flight")
	ErrLayoutRender   = errors.New("layout rendering failed")
	ErrCaptureFailed  = errors.New("raster capture failed")
	ErrBadCapture     = errors.New("captured image is not a valid PNG")
	ErrPDFAssembly    = errors.New("PDF assembly failed")

	// Browser errors surfaced by the rod capturer.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrRegionNotFound = errors.New("invoice region not found in rendered page")

	// Record edit errors.
	ErrLineItemIndex = errors.New("line item index out of range")
)
