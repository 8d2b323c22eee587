// Package invoicer renders catering invoices to single-page PDF documents.
//
// # Quick Start
//
// Build a record, create a service, and export:
//
//	rec := invoicer.DefaultRecord().
//	    WithClient(invoicer.Client{Name: "..."}).
//	    AppendLineItem(invoicer.LineItem{Label: "2026-08-01", BreakfastCount: 10, LunchCount: 11})
//
//	svc := invoicer.New()
//	defer svc.Close()
//
//	pdf, err := svc.Export(ctx, rec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(svc.Filename(rec), pdf, 0644)
//
// # Export Pipeline
//
// The export follows these stages:
//
//  1. Derivation of line totals, gross/net total and USD equivalent
//  2. Layout rendering into a fixed A4 right-to-left HTML document
//  3. Raster capture of the invoice region via headless Chrome (go-rod),
//     oversampled 2x for print sharpness
//  4. Fit-to-page placement and embedding into a single-page PDF (gofpdf)
//
// The output is raster-only: one embedded image per page, no text layer.
//
// # Determinism
//
// Derivation and layout rendering are pure functions of the record. Calling
// them repeatedly with an unmutated record yields identical results, which is
// what makes the PDF output reproducible for a given capture environment.
//
// # Browser Requirements
//
// Raster capture requires Chrome/Chromium. go-rod downloads a managed
// Chromium on first run. Use ROD_BROWSER_BIN to point at a pre-installed
// binary; set CI=true to disable the Chrome sandbox in containers.
package invoicer
