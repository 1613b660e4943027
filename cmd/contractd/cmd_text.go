package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
)

var (
	textOCR  bool
	textJSON bool
)

var textCmd = &cobra.Command{
	Use:   "text <file.pdf>",
	Short: "Print per-page text and how each page was read",
	Args:  cobra.ExactArgs(1),
	RunE:  runText,
}

func init() {
	textCmd.Flags().BoolVar(&textOCR, "ocr", false, "OCR every page")
	textCmd.Flags().BoolVar(&textJSON, "json", false, "print pages as JSON")
}

func runText(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	src, err := ocr.NewExtractor(ocr.FromAppConfig(cfg.OCR), logger).Open(ctx, data, ocr.Options{ForceOCR: textOCR})
	if err != nil {
		return err
	}
	defer src.Close()
	pages, err := src.Collect(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if textJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}
	for _, p := range pages {
		fmt.Fprintf(out, "=== page %d (%s, ocr=%t) ===\n", p.Number, p.Kind, p.OCR)
		for _, w := range p.Warnings {
			fmt.Fprintf(out, "! %s\n", w)
		}
		fmt.Fprintln(out, p.Text)
	}
	fmt.Fprintf(out, "pages=%d ocr_used=%t scanned=%v\n", len(pages), ocr.OCRUsed(pages), ocr.ScannedPages(pages))
	return nil
}
