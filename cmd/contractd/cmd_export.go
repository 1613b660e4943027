package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
)

var (
	exportOut      string
	exportStatus   string
	exportCategory string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored documents, scores and gaps to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "contracts.xlsx", "output XLSX path")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "only documents with this status")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "only gaps and fields in this category")
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var q export.Query
	if exportStatus != "" {
		st, ok := constants.ParseStatus(exportStatus)
		if !ok {
			return common.InvalidInputf("unknown status %q", exportStatus)
		}
		q.Status = &st
	}
	if exportCategory != "" {
		cat, ok := constants.ParseCategory(exportCategory)
		if !ok {
			return common.InvalidInputf("unknown category %q, want one of %s",
				exportCategory, strings.Join(constants.CategoryNames(), ", "))
		}
		q.Category = &cat
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close()

	xlsx, err := a.svc.Export(ctx, q)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, xlsx, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", exportOut, len(xlsx))
	return nil
}
