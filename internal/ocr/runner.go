package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// Step is one external stage of page OCR.
type Step string

const (
	StepRasterize Step = "rasterize" // pdftoppm: page -> PNG
	StepRecognize Step = "recognize" // tesseract: PNG -> text
)

// Invocation is a single tool call made on behalf of one page.
type Invocation struct {
	Step   Step
	Page   int
	Binary string
	Args   []string
}

// Runner executes OCR tool invocations. Tests swap in a fake via WithRunner.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (stdout, stderr []byte, err error)
}

// stderr kept in logs and wrapped errors
const (
	maxLoggedStderr = 4 << 10
	maxErrorStderr  = 512
)

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, inv Invocation) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	log := r.logger.With(
		"step", inv.Step,
		"page", inv.Page,
		"binary", inv.Binary,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.Warn("ocr.tool.failed", "error", err, "stderr", common.CutBytes(stderr.String(), maxLoggedStderr))
		return stdout.Bytes(), stderr.Bytes(), err
	}
	log.Debug("ocr.tool.done", "stdout_bytes", stdout.Len())
	return stdout.Bytes(), stderr.Bytes(), nil
}
