package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	DPI         int    // rasterization DPI for scanned pages, default 300
	TessdataDir string

	// MinCharDensity is the embedded-text yield, in characters per 10,000 pt²,
	// below which a page counts as scanned. Default 2.0 (≈100 chars on US Letter).
	MinCharDensity float64
	CallTimeout    time.Duration // per pdftoppm/tesseract call, default 60s
	Parallelism    int           // concurrent page OCR in Collect, default 4
	Disabled       bool          // never run OCR
}

// FromAppConfig builds a Config from the application configuration.
func FromAppConfig(c common.OCRConfig) Config {
	return Config{
		Pdftoppm:       c.Pdftoppm,
		Tesseract:      c.Tesseract,
		Language:       c.Language,
		DPI:            c.DPI,
		TessdataDir:    c.TessdataDir,
		MinCharDensity: c.MinCharDensity,
		CallTimeout:    c.CallTimeout,
		Parallelism:    c.Parallelism,
		Disabled:       !c.Enabled,
	}
}

// Kind classifies how a page's text was produced.
type Kind string

const (
	KindDigital Kind = "digital"
	KindScanned Kind = "scanned"
)

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number   int
	Text     string
	Kind     Kind
	OCR      bool // OCR ran successfully on this page
	Warnings []string
}

// Options are per-run switches.
type Options struct {
	ForceOCR bool // OCR every page; digital pages get OCR text as a supplement
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner swaps the command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinCharDensity <= 0 {
		cfg.MinCharDensity = 2.0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Source is an opened PDF. Pages may be ranged over any number of times.
type Source struct {
	e      *Extractor
	data   []byte
	reader *pdf.Reader
	pages  int
	opts   Options

	tmpOnce sync.Once
	tmpPath string
	tmpErr  error
}

// Open parses data as a PDF. Corrupt input fails with UnreadableDocument and
// encrypted input with UnsupportedDocument.
func (e *Extractor) Open(ctx context.Context, data []byte, opts Options) (src *Source, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte(constants.PDFMagic)) {
		return nil, common.UnreadableDocument("missing PDF header", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, common.UnreadableDocument("malformed PDF structure", fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, classifyOpenError(err)
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, common.UnreadableDocument("document has no pages", nil)
	}
	e.logger.Debug("pdf opened", "pages", n, "bytes", len(data), "force_ocr", opts.ForceOCR)
	return &Source{e: e, data: data, reader: r, pages: n, opts: opts}, nil
}

func classifyOpenError(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
		return common.UnsupportedDocument("encrypted or password-protected PDF", err)
	}
	return common.UnreadableDocument("cannot parse PDF", err)
}

// NumPages is the page count of the document.
func (s *Source) NumPages() int { return s.pages }

// Pages yields pages in ascending order. A page error stops the sequence.
func (s *Source) Pages(ctx context.Context) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for n := 1; n <= s.pages; n++ {
			p, err := s.page(ctx, n)
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Collect extracts every page, running OCR for independent pages in parallel.
func (s *Source) Collect(ctx context.Context) ([]Page, error) {
	out := make([]Page, s.pages)
	// Embedded text first: the PDF reader is not safe for concurrent use.
	var needOCR []int
	for n := 1; n <= s.pages; n++ {
		p, err := s.embedded(n)
		if err != nil {
			return nil, err
		}
		out[n-1] = p
		if s.wantsOCR(p) {
			needOCR = append(needOCR, n)
		}
	}
	if len(needOCR) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.e.cfg.Parallelism)
	for _, n := range needOCR {
		g.Go(func() error {
			p, err := s.applyOCR(gctx, out[n-1])
			if err != nil {
				return err
			}
			out[n-1] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close removes temporary files created for OCR.
func (s *Source) Close() error {
	if s.tmpPath != "" {
		return os.Remove(s.tmpPath)
	}
	return nil
}

func (s *Source) page(ctx context.Context, n int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{Number: n}, err
	}
	p, err := s.embedded(n)
	if err != nil {
		return p, err
	}
	if !s.wantsOCR(p) {
		return p, nil
	}
	return s.applyOCR(ctx, p)
}

func (s *Source) wantsOCR(p Page) bool {
	return !s.e.cfg.Disabled && (p.Kind == KindScanned || s.opts.ForceOCR)
}

// embedded reads the text layer of page n and classifies it.
func (s *Source) embedded(n int) (p Page, err error) {
	p = Page{Number: n}
	defer func() {
		if r := recover(); r != nil {
			err = common.UnreadableDocument(fmt.Sprintf("page %d is malformed", n), fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	pg := s.reader.Page(n)
	if pg.V.IsNull() {
		return p, common.UnreadableDocument(fmt.Sprintf("page %d is missing", n), nil)
	}
	raw, err := pg.GetPlainText(nil)
	if err != nil {
		return p, common.UnreadableDocument(fmt.Sprintf("page %d text layer unreadable", n), err)
	}
	p.Text = Normalize(raw)

	area := pageArea(pg)
	density := float64(visibleChars(p.Text)) / area * 10000
	p.Kind = KindDigital
	if density < s.e.cfg.MinCharDensity {
		p.Kind = KindScanned
	}
	s.e.logger.Debug("page classified", "page", n, "kind", p.Kind, "chars", visibleChars(p.Text), "density", density)
	return p, nil
}

// applyOCR runs OCR for p and merges the result. Only timeouts and
// cancellation are fatal; any other OCR failure leaves the embedded text.
func (s *Source) applyOCR(ctx context.Context, p Page) (Page, error) {
	text, err := common.RetryOnTimeout(ctx, func(ctx context.Context) (string, error) {
		return s.ocrPage(ctx, p.Number)
	})
	switch {
	case err == nil:
	case errors.Is(err, common.ErrExtractionTimeout):
		return p, err
	case ctx.Err() != nil:
		return p, ctx.Err()
	default:
		s.e.logger.Warn("ocr unavailable for page, keeping embedded text", "page", p.Number, "error", err)
		p.Warnings = append(p.Warnings, "ocr: "+err.Error())
		return p, nil
	}

	p.OCR = true
	text = Normalize(text)
	switch {
	case text == "":
	case p.Kind == KindScanned:
		p.Text = text
	case !strings.Contains(p.Text, text):
		p.Text = p.Text + "\n" + text
	}
	return p, nil
}

// OCRUsed reports whether OCR produced text for any page.
func OCRUsed(pages []Page) bool {
	for _, p := range pages {
		if p.OCR {
			return true
		}
	}
	return false
}

// ScannedPages lists the numbers of pages classified as scanned.
func ScannedPages(pages []Page) []int {
	var out []int
	for _, p := range pages {
		if p.Kind == KindScanned {
			out = append(out, p.Number)
		}
	}
	return out
}

const letterArea = 612.0 * 792.0

// pageArea returns the MediaBox area in points², inherited through Parent, US Letter when absent.
func pageArea(pg pdf.Page) float64 {
	v := pg.V
	for i := 0; i < 32 && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() >= 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if a := math.Abs(w * h); a > 0 {
				return a
			}
			break
		}
		v = v.Key("Parent")
	}
	return letterArea
}
