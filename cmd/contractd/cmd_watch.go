package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
	watchOCR      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Ingest PDFs as they appear under the given directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial-scan", true, "ingest PDFs already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait this long after the last write before ingesting")
	watchCmd.Flags().BoolVar(&watchOCR, "ocr", false, "OCR every page")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	flush := initTracing(ctx, cfg, logger)
	defer flush()

	a, err := openApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.shutdownQueue(30 * time.Second)

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchInitial,
		Debounce:    watchDebounce,
	}, logger)
	if err != nil {
		return err
	}
	opts := entity.RunOptions{ForceOCR: watchOCR, UseModel: cfg.LLM.Enabled}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			res, err := a.intake.IngestPath(ctx, p, opts)
			if err != nil {
				logger.Error("failed to ingest file", "path", p, "error", err)
				continue
			}
			logger.Info("file ingested", "path", p, "doc_id", res.Document.ID, "duplicate", res.Duplicate)
		}
	}
}
