// Package export renders stored contracts into spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
)

const (
	SheetContracts = "Contracts"
	SheetGaps      = "Gaps"
	SheetFields    = "Fields"

	pageSize = 100
)

// Query narrows the exported documents. Category limits the Gaps and Fields
// sheets; the Contracts sheet always carries every matching document.
type Query struct {
	Status   *constants.ProcessingStatus
	Category *constants.Category
}

// Service produces XLSX bytes for stored documents.
type Service struct {
	docs   repository.DocumentRepository
	lib    *patterns.Library
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, lib *patterns.Library, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if lib == nil {
		lib = patterns.Default()
	}
	return &Service{docs: docs, lib: lib, logger: logger}
}

// ExportXLSX returns a workbook with one row per document on the Contracts
// sheet, plus the gap list and every extracted field of completed documents.
func (s *Service) ExportXLSX(ctx context.Context, q Query) ([]byte, error) {
	start := time.Now()
	docs, err := s.collect(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetContracts); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetGaps, SheetFields} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	contracts := newSheet(f, SheetContracts,
		"Document ID", "Filename", "Status", "Uploaded At", "Overall Score",
		"Average Confidence", "Low Confidence Fields", "High Confidence Fields",
		"Gaps", "OCR Used", "Model Used", "Error")
	gaps := newSheet(f, SheetGaps, "Document ID", "Filename", "Field", "Category", "Reason", "Severity")
	fields := newSheet(f, SheetFields, "Document ID", "Field", "Category", "Value", "Confidence", "Source", "Page", "Snippet")

	for _, d := range docs {
		row := []any{d.ID.String(), d.Filename, string(d.Status), d.UploadedAt.Format(time.RFC3339)}
		res := d.Result
		if res != nil && d.Status == constants.StatusCompleted {
			row = append(row,
				res.OverallScore,
				res.ConfidenceSummary.Average,
				res.ConfidenceSummary.LowCount,
				res.ConfidenceSummary.HighCount,
				len(res.Gaps),
				res.Processing.OCRUsed,
				res.Processing.ModelUsed,
				"",
			)
		} else {
			errMsg := ""
			if d.ErrorMessage != nil {
				errMsg = *d.ErrorMessage
			}
			row = append(row, "", "", "", "", "", "", "", errMsg)
		}
		contracts.add(row...)
		if res == nil || d.Status != constants.StatusCompleted {
			continue
		}

		for _, g := range res.Gaps {
			if q.Category != nil && g.Category != *q.Category {
				continue
			}
			gaps.add(d.ID.String(), d.Filename, g.Field, string(g.Category), string(g.Reason), string(g.Severity))
		}
		for _, name := range s.fieldOrder(res.Fields) {
			fv := res.Fields[name]
			page, snippet := "", ""
			if fv.Evidence != nil {
				page, snippet = fmt.Sprint(fv.Evidence.Page), fv.Evidence.Snippet
			}
			var category constants.Category
			if def, ok := s.lib.Lookup(name); ok {
				category = def.Category
			}
			if q.Category != nil && category != *q.Category {
				continue
			}
			fields.add(d.ID.String(), name, string(category), cellValue(fv.Value), fv.Confidence, string(fv.Source), page, snippet)
		}
	}

	_ = f.SetColWidth(SheetContracts, "A", "A", 38)
	_ = f.SetColWidth(SheetContracts, "B", "B", 32)
	_ = f.SetColWidth(SheetContracts, "D", "D", 22)
	_ = f.SetColWidth(SheetContracts, "L", "L", 48)
	_ = f.SetColWidth(SheetGaps, "A", "B", 36)
	_ = f.SetColWidth(SheetFields, "A", "A", 38)
	_ = f.SetColWidth(SheetFields, "B", "B", 26)
	_ = f.SetColWidth(SheetFields, "D", "D", 32)
	_ = f.SetColWidth(SheetFields, "H", "H", 80)
	for _, sh := range []*sheet{contracts, gaps, fields} {
		if sh.err != nil {
			return nil, fmt.Errorf("xlsx %s: %w", sh.name, sh.err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"category", categoryLabel(q.Category),
		"gaps", gaps.row-2,
		"fields", fields.row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func categoryLabel(c *constants.Category) string {
	if c == nil {
		return "all"
	}
	return string(*c)
}

func (s *Service) collect(ctx context.Context, q Query) ([]entity.Document, error) {
	var out []entity.Document
	for page := 1; ; page++ {
		res, err := s.docs.List(ctx, entity.ListQuery{
			Page: page, Limit: pageSize, Status: q.Status,
			SortBy: "uploaded_at", SortOrder: "asc",
		})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		if len(res.Items) < pageSize || len(out) >= res.Total {
			return out, nil
		}
	}
}

// fieldOrder lists names in library declaration order; unknown names sort last.
func (s *Service) fieldOrder(fs entity.FieldSet) []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	order := func(n string) int {
		if i := s.lib.Order(n); i >= 0 {
			return i
		}
		return math.MaxInt
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := order(names[i]), order(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

// sheet appends rows and keeps the first write error.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	err  error
}

func newSheet(f *excelize.File, name string, headers ...string) *sheet {
	s := &sheet{f: f, name: name, row: 1}
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	s.add(cells...)
	return s
}

func (s *sheet) add(values ...any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
		s.err = err
		return
	}
	s.row++
}

// cellValue renders a field value for a single cell. Lists read back from
// storage as []any; only their length is shown.
func cellValue(v any) string {
	if items, ok := v.([]any); ok {
		if len(items) == 1 {
			return "1 line item"
		}
		return fmt.Sprintf("%d line items", len(items))
	}
	return fmt.Sprint(v)
}
