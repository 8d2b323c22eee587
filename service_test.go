package invoicer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// Mock implementations for testing.

type mockLayout struct {
	called int
	output string
	err    error
}

func (m *mockLayout) Render(r InvoiceRecord, t Totals) (string, error) {
	m.called++
	if m.err != nil {
		return "", m.err
	}
	if m.output != "" {
		return m.output, nil
	}
	return "<html><div id=\"invoice\"></div></html>", nil
}

type mockCapturer struct {
	mu        sync.Mutex
	called    int
	inputHTML string
	output    []byte
	err       error
	block     chan struct{} // when set, Capture waits until closed
	closed    bool
}

func (m *mockCapturer) Capture(ctx context.Context, htmlContent string) ([]byte, error) {
	m.mu.Lock()
	m.called++
	m.inputHTML = htmlContent
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func (m *mockCapturer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockAssembler struct {
	called     int
	inputPNG   []byte
	inputPlace placement
	output     []byte
	err        error
}

func (m *mockAssembler) Assemble(pngData []byte, p placement) ([]byte, error) {
	m.called++
	m.inputPNG = pngData
	m.inputPlace = p
	if m.err != nil {
		return nil, m.err
	}
	if m.output != nil {
		return m.output, nil
	}
	return []byte("%PDF-1.4 mock"), nil
}

// Test options for dependency injection (not exported).

func withLayout(l layoutRenderer) Option {
	return func(s *Service) {
		s.layout = l
	}
}

func withCapturer(c rasterCapturer) Option {
	return func(s *Service) {
		s.capturer = c
	}
}

func withAssembler(a pdfAssembler) Option {
	return func(s *Service) {
		s.assembler = a
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestExportPipeline(t *testing.T) {
	capturer := &mockCapturer{output: encodeTestPNG(t, 1000, 1000)}
	assembler := &mockAssembler{}
	s := newTestService(t, withCapturer(capturer), withAssembler(assembler))
	defer s.Close()

	pdf, err := s.Export(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("Export() returned empty PDF")
	}

	if capturer.called != 1 {
		t.Errorf("capturer called %d times, want 1", capturer.called)
	}
	if assembler.called != 1 {
		t.Errorf("assembler called %d times, want 1", assembler.called)
	}

	// The real layout rendered the record before capture.
	if capturer.inputHTML == "" {
		t.Error("capturer received empty HTML")
	}

	// Placement computed from the captured dimensions (square: width-bound).
	if assembler.inputPlace.W != pageWidthMM {
		t.Errorf("placement W = %v, want %v", assembler.inputPlace.W, pageWidthMM)
	}
}

func TestExportLayoutFailure(t *testing.T) {
	layout := &mockLayout{err: ErrLayoutRender}
	capturer := &mockCapturer{}
	s := newTestService(t, withLayout(layout), withCapturer(capturer), withAssembler(&mockAssembler{}))
	defer s.Close()

	if _, err := s.Export(context.Background(), testRecord()); !errors.Is(err, ErrLayoutRender) {
		t.Errorf("Export() error = %v, want ErrLayoutRender", err)
	}
	if capturer.called != 0 {
		t.Error("capture ran after layout failure")
	}
}

func TestExportCaptureFailure(t *testing.T) {
	capturer := &mockCapturer{err: ErrCaptureFailed}
	assembler := &mockAssembler{}
	s := newTestService(t, withCapturer(capturer), withAssembler(assembler))
	defer s.Close()

	pdf, err := s.Export(context.Background(), testRecord())
	if !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("Export() error = %v, want ErrCaptureFailed", err)
	}
	if pdf != nil {
		t.Error("Export() returned partial output on failure")
	}
	if assembler.called != 0 {
		t.Error("assembly ran after capture failure")
	}

	// The guard cleared: a retry is possible.
	capturer.err = nil
	capturer.output = encodeTestPNG(t, 10, 10)
	if _, err := s.Export(context.Background(), testRecord()); err != nil {
		t.Errorf("retry after failure: Export() error = %v", err)
	}
}

func TestExportBadCapture(t *testing.T) {
	capturer := &mockCapturer{output: []byte("not a png")}
	s := newTestService(t, withCapturer(capturer), withAssembler(&mockAssembler{}))
	defer s.Close()

	if _, err := s.Export(context.Background(), testRecord()); !errors.Is(err, ErrBadCapture) {
		t.Errorf("Export() error = %v, want ErrBadCapture", err)
	}
}

func TestExportRejectsOverlap(t *testing.T) {
	block := make(chan struct{})
	capturer := &mockCapturer{output: encodeTestPNG(t, 10, 10), block: block}
	assembler := &mockAssembler{}
	s := newTestService(t, withCapturer(capturer), withAssembler(assembler))
	defer s.Close()

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Export(context.Background(), testRecord())
		firstDone <- err
	}()

	// Wait until the first export is inside capture.
	deadline := time.After(5 * time.Second)
	for {
		capturer.mu.Lock()
		started := capturer.called > 0
		capturer.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first export never reached capture")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Second export while the first is in flight: rejected, nothing runs.
	if _, err := s.Export(context.Background(), testRecord()); !errors.Is(err, ErrExportInFlight) {
		t.Fatalf("overlapping Export() error = %v, want ErrExportInFlight", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Export() error = %v", err)
	}

	if capturer.called != 1 {
		t.Errorf("capturer called %d times, want 1", capturer.called)
	}
	if assembler.called != 1 {
		t.Errorf("assembler called %d times, want exactly 1 PDF", assembler.called)
	}

	// The guard cleared after the first export resolved.
	if _, err := s.Export(context.Background(), testRecord()); err != nil {
		t.Errorf("sequential Export() after completion: error = %v", err)
	}
}

func TestExportContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	capturer := &mockCapturer{block: block}
	s := newTestService(t, withCapturer(capturer), withAssembler(&mockAssembler{}))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Export(ctx, testRecord()); !errors.Is(err, context.Canceled) {
		t.Errorf("Export() error = %v, want context.Canceled", err)
	}
}

func TestFilename(t *testing.T) {
	s := newTestService(t, withCapturer(&mockCapturer{}), withAssembler(&mockAssembler{}))
	defer s.Close()

	rec := testRecord()
	if got, want := s.Filename(rec), "invoice-42.pdf"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestCloseReleasesCapturer(t *testing.T) {
	capturer := &mockCapturer{}
	s := newTestService(t, withCapturer(capturer), withAssembler(&mockAssembler{}))

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !capturer.closed {
		t.Error("Close() did not release the capturer")
	}
}
