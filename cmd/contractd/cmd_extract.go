package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
)

var (
	extractOCR   bool
	extractModel bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Run the pipeline on one PDF and print the contract as JSON",
	Long:  "Runs text extraction, field extraction and scoring without touching the store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractOCR, "ocr", false, "OCR every page, not only scanned ones")
	extractCmd.Flags().BoolVar(&extractModel, "model", false, "ask the model for fields the rules miss")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	flush := initTracing(ctx, cfg, logger)
	defer flush()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	opts := entity.RunOptions{ForceOCR: extractOCR, UseModel: extractModel}
	if err := ingest.Validate(ingest.Upload{MIMEType: constants.MIMETypePDF, Data: data, Options: opts}, cfg.Processing.MaxUploadSize); err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg, extractModel, logger)
	if err != nil {
		return err
	}
	res, _, err := analyzer.Analyze(ctx, data, pipeline.Input{Filename: filepath.Base(path), Options: opts}, nil)
	if err != nil {
		return err
	}

	doc := &entity.Document{ID: uuid.New(), Filename: filepath.Base(path), Status: constants.StatusCompleted}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pipeline.Contract(patterns.Default(), doc, res))
}
