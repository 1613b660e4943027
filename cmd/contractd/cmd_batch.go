package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
)

var (
	batchOut        string
	batchOCR        bool
	batchModel      bool
	batchShowHidden bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Ingest every PDF under a directory, process them and optionally export",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "", "write an XLSX export here when done")
	batchCmd.Flags().BoolVar(&batchOCR, "ocr", false, "OCR every page")
	batchCmd.Flags().BoolVar(&batchModel, "model", false, "ask the model for fields the rules miss")
	batchCmd.Flags().BoolVar(&batchShowHidden, "hidden", false, "include hidden files and directories")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchModel {
		cfg.LLM.Enabled = true
	}
	ctx := cmd.Context()
	flush := initTracing(ctx, cfg, logger)
	defer flush()

	a, err := openApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.shutdownQueue(30 * time.Second)

	opts := entity.RunOptions{ForceOCR: batchOCR, UseModel: batchModel}
	results, stats, err := a.intake.IngestDirectory(ctx, args[0], !batchShowHidden, opts)
	if err != nil {
		return err
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	var processed, failed int
	for _, r := range results {
		if r.Err != nil || r.Result == nil || r.Result.Handle == nil {
			continue
		}
		out, err := r.Result.Handle.Wait(ctx)
		if err != nil {
			return err
		}
		if out.Err != nil {
			logger.Error("failed to process file", "path", r.Path, "doc_id", out.DocumentID, "error", out.Err)
			failed++
			continue
		}
		processed++
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Batch processing complete!\n")
	fmt.Fprintf(w, "- Files ingested: %d (%d duplicates)\n", stats.Succeeded, stats.Deduplicated)
	fmt.Fprintf(w, "- Files processed: %d\n", processed)
	fmt.Fprintf(w, "- Failures: %d\n", failed+int(stats.Failed))

	if batchOut == "" {
		return nil
	}
	completed := constants.StatusCompleted
	xlsx, err := a.svc.Export(context.WithoutCancel(ctx), export.Query{Status: &completed})
	if err != nil {
		return err
	}
	if err := os.WriteFile(batchOut, xlsx, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "- Output: %s\n", batchOut)
	return nil
}
