package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// ocrPage rasterises page n and runs tesseract on the image.
func (s *Source) ocrPage(ctx context.Context, n int) (string, error) {
	in, err := s.spool()
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "ce-page-*")
	if err != nil {
		return "", err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			s.e.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	page := strconv.Itoa(n)
	// pdftoppm -f N -l N -r 300 -png -singlefile <in.pdf> <tmp/page>  => tmp/page.png
	raster := Invocation{
		Step:   StepRasterize,
		Page:   n,
		Binary: s.e.cfg.Pdftoppm,
		Args:   []string{"-f", page, "-l", page, "-r", strconv.Itoa(s.e.cfg.DPI), "-png", "-singlefile", in, prefix},
	}
	if _, errb, err := s.e.call(ctx, raster); err != nil {
		return "", commandError(raster, errb, err)
	}

	args := []string{prefix + ".png", "stdout", "-l", s.e.cfg.Language}
	if s.e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", s.e.cfg.TessdataDir)
	}
	recognize := Invocation{Step: StepRecognize, Page: n, Binary: s.e.cfg.Tesseract, Args: args}
	out, errb, err := s.e.call(ctx, recognize)
	if err != nil {
		return "", commandError(recognize, errb, err)
	}
	return string(out), nil
}

// call runs one invocation under the per-call timeout.
func (e *Extractor) call(ctx context.Context, inv Invocation) ([]byte, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	out, errb, err := e.runner.Run(callCtx, inv)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return out, errb, common.ExtractionTimeout(fmt.Sprintf("%s page %d exceeded %s", inv.Step, inv.Page, e.cfg.CallTimeout), err)
	}
	return out, errb, err
}

func commandError(inv Invocation, stderr []byte, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if len(stderr) > 0 {
		return fmt.Errorf("%s page %d (%s): %w: %s", inv.Step, inv.Page, inv.Binary, err, common.CutBytes(string(stderr), maxErrorStderr))
	}
	return fmt.Errorf("%s page %d (%s): %w", inv.Step, inv.Page, inv.Binary, err)
}

// spool writes the PDF bytes to a temp file once so external tools can read it.
func (s *Source) spool() (string, error) {
	s.tmpOnce.Do(func() {
		f, err := os.CreateTemp("", "ce-doc-*.pdf")
		if err != nil {
			s.tmpErr = err
			return
		}
		if _, err := f.Write(s.data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			s.tmpErr = err
			return
		}
		if err := f.Close(); err != nil {
			s.tmpErr = err
			return
		}
		s.tmpPath = f.Name()
	})
	return s.tmpPath, s.tmpErr
}
