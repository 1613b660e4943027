package ocr_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
	"github.com/joseph-ayodele/contracts-extractor/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeRunner pretends to be pdftoppm + tesseract; recognition answers with
// the invocation page's text.
type fakeRunner struct {
	mu    sync.Mutex
	text  map[int]string
	err   error
	block bool
	calls map[ocr.Step]int
}

func newFakeRunner(text map[int]string) *fakeRunner {
	return &fakeRunner{text: text, calls: map[ocr.Step]int{}}
}

func (f *fakeRunner) Run(ctx context.Context, inv ocr.Invocation) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls[inv.Step]++
	block, err := f.block, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if err != nil {
		return nil, []byte("boom"), err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch inv.Step {
	case ocr.StepRasterize:
		return nil, nil, nil
	case ocr.StepRecognize:
		return []byte(f.text[inv.Page]), nil, nil
	}
	return nil, nil, errors.New("unexpected step " + string(inv.Step))
}

func (f *fakeRunner) count(step ocr.Step) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[step]
}

// denseLines is comfortably above the scanned-page density threshold.
var denseLines = []string{
	"MASTER SERVICES AGREEMENT between Acme Corporation and Beta Services LLC.",
	"Effective Date: 2024-01-15. Payment Terms: Net 30 from the date of each invoice.",
	"This Agreement shall be governed by the laws of the State of Delaware.",
}

func open(t *testing.T, e *ocr.Extractor, data []byte, opts ocr.Options) *ocr.Source {
	t.Helper()
	src, err := e.Open(context.Background(), data, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestExtract_DigitalPage(t *testing.T) {
	runner := newFakeRunner(nil)
	e := ocr.NewExtractor(ocr.Config{}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.TextPage(denseLines...)), ocr.Options{})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages", len(pages))
	}
	p := pages[0]
	if p.Number != 1 || p.Kind != ocr.KindDigital || p.OCR {
		t.Errorf("page = %+v", p)
	}
	if !strings.Contains(p.Text, "Effective Date: 2024-01-15") {
		t.Errorf("text missing effective date:\n%s", p.Text)
	}
	if runner.count(ocr.StepRasterize) != 0 {
		t.Error("OCR ran on a digital page")
	}
	if ocr.OCRUsed(pages) {
		t.Error("OCRUsed = true")
	}
}

func TestExtract_ScannedPageUsesOCR(t *testing.T) {
	runner := newFakeRunner(map[int]string{2: "Effective Date: 2024-03-01\r\nPayment Terms: Net 45\n"})
	e := ocr.NewExtractor(ocr.Config{}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.TextPage(denseLines...), testutil.ImagePage()), ocr.Options{})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := ocr.ScannedPages(pages); !cmp.Equal(got, []int{2}) {
		t.Errorf("ScannedPages = %v", got)
	}
	p := pages[1]
	if !p.OCR || p.Kind != ocr.KindScanned {
		t.Errorf("page 2 = %+v", p)
	}
	if diff := cmp.Diff("Effective Date: 2024-03-01\nPayment Terms: Net 45", p.Text); diff != "" {
		t.Errorf("page 2 text (-want +got):\n%s", diff)
	}
	if pages[0].OCR {
		t.Error("page 1 should be untouched by OCR")
	}
	if !ocr.OCRUsed(pages) {
		t.Error("OCRUsed = false")
	}
	if runner.count(ocr.StepRasterize) != 1 || runner.count(ocr.StepRecognize) != 1 {
		t.Errorf("calls = %v", runner.calls)
	}
}

func TestExtract_OCRUnavailableDegrades(t *testing.T) {
	runner := newFakeRunner(nil)
	runner.err = &exec.Error{Name: "pdftoppm", Err: exec.ErrNotFound}
	e := ocr.NewExtractor(ocr.Config{}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.ImagePage()), ocr.Options{})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect should degrade, got %v", err)
	}
	p := pages[0]
	if p.OCR || p.Text != "" || len(p.Warnings) == 0 {
		t.Errorf("page = %+v", p)
	}
	if ocr.OCRUsed(pages) {
		t.Error("OCRUsed = true with OCR unavailable")
	}
}

func TestExtract_MissingBinaryWarnsWithStep(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-pdftoppm")
	e := ocr.NewExtractor(ocr.Config{Pdftoppm: missing}, discardLogger())
	src := open(t, e, testutil.BuildPDF(testutil.ImagePage()), ocr.Options{})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect should degrade, got %v", err)
	}
	var found bool
	for _, w := range pages[0].Warnings {
		found = found || strings.Contains(w, "rasterize page 1") && strings.Contains(w, missing)
	}
	if !found {
		t.Errorf("no warning names the step, page and binary: %v", pages[0].Warnings)
	}
}

func TestExtract_OCRTimeoutRetriedOnce(t *testing.T) {
	runner := newFakeRunner(nil)
	runner.block = true
	e := ocr.NewExtractor(ocr.Config{CallTimeout: 20 * time.Millisecond}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.ImagePage()), ocr.Options{})

	_, err := src.Collect(context.Background())
	if !errors.Is(err, common.ErrExtractionTimeout) {
		t.Fatalf("err = %v, want ExtractionTimeout", err)
	}
	if got := runner.count(ocr.StepRasterize); got != 2 {
		t.Errorf("pdftoppm calls = %d, want 2 (one retry)", got)
	}
}

func TestExtract_DisabledOCR(t *testing.T) {
	runner := newFakeRunner(map[int]string{1: "should not appear"})
	e := ocr.NewExtractor(ocr.Config{Disabled: true}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.ImagePage()), ocr.Options{ForceOCR: true})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if pages[0].OCR || pages[0].Kind != ocr.KindScanned {
		t.Errorf("page = %+v", pages[0])
	}
	if runner.count(ocr.StepRasterize) != 0 {
		t.Error("runner called with OCR disabled")
	}
}

func TestExtract_ForceOCRSupplementsDigitalText(t *testing.T) {
	runner := newFakeRunner(map[int]string{1: "Stamp: RECEIVED"})
	e := ocr.NewExtractor(ocr.Config{}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.TextPage(denseLines...)), ocr.Options{ForceOCR: true})

	pages, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	p := pages[0]
	if p.Kind != ocr.KindDigital || !p.OCR {
		t.Errorf("page = %+v", p)
	}
	if !strings.Contains(p.Text, "Effective Date: 2024-01-15") || !strings.HasSuffix(p.Text, "Stamp: RECEIVED") {
		t.Errorf("text = %q", p.Text)
	}
}

func TestPages_LazyAndRestartable(t *testing.T) {
	runner := newFakeRunner(map[int]string{2: "Governing law: Texas"})
	e := ocr.NewExtractor(ocr.Config{}, discardLogger(), ocr.WithRunner(runner))
	src := open(t, e, testutil.BuildPDF(testutil.TextPage(denseLines...), testutil.ImagePage(), testutil.TextPage(denseLines...)), ocr.Options{})
	if src.NumPages() != 3 {
		t.Fatalf("NumPages = %d", src.NumPages())
	}

	collect := func() []int {
		var nums []int
		for p, err := range src.Pages(context.Background()) {
			if err != nil {
				t.Fatalf("page %d: %v", p.Number, err)
			}
			nums = append(nums, p.Number)
		}
		return nums
	}
	first, second := collect(), collect()
	if diff := cmp.Diff([]int{1, 2, 3}, first); diff != "" {
		t.Errorf("first pass (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}

	// Stopping early must not touch later pages.
	before := runner.count(ocr.StepRasterize)
	for p := range src.Pages(context.Background()) {
		if p.Number == 1 {
			break
		}
	}
	if runner.count(ocr.StepRasterize) != before {
		t.Error("breaking after page 1 still ran OCR on page 2")
	}
}

func TestOpen_Errors(t *testing.T) {
	e := ocr.NewExtractor(ocr.Config{}, discardLogger())
	cases := map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("hello world"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Open(context.Background(), data, ocr.Options{})
			if !errors.Is(err, common.ErrUnreadableDocument) {
				t.Errorf("err = %v, want UnreadableDocument", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World\r\n\r\n\r\n\r\nNext", "Hello World\n\nNext"},
		{"Amount\t\t100   U S D  ", "Amount 100 USD"},
		{"Term – 24 months\n-----\nEnd", "Term - 24 months\n\nEnd"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ocr.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
