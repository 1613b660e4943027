package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
)

// FakeOCR stands in for pdftoppm + tesseract. Recognition answers with the
// text configured for the invocation's page.
type FakeOCR struct {
	mu    sync.Mutex
	text  map[int]string
	calls int
	Err   error
}

func NewFakeOCR(text map[int]string) *FakeOCR {
	return &FakeOCR{text: text}
}

func (f *FakeOCR) Run(ctx context.Context, inv ocr.Invocation) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, []byte("unavailable"), f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	switch inv.Step {
	case ocr.StepRasterize:
		return nil, nil, nil
	case ocr.StepRecognize:
		return []byte(f.text[inv.Page]), nil, nil
	}
	return nil, nil, errors.New("unexpected step " + string(inv.Step))
}

// Calls is the number of commands run so far.
func (f *FakeOCR) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
