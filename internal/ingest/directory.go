package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
)

type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// IngestPath reads one PDF from disk and ingests it.
func (uc *Usecase) IngestPath(ctx context.Context, path string, opts entity.RunOptions) (*Result, error) {
	if !AllowedExt(filepath.Ext(path)) {
		return nil, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return uc.Ingest(ctx, Upload{
		Filename: filepath.Base(path),
		MIMEType: constants.MIMETypePDF,
		Data:     data,
		Options:  opts,
	})
}

// IngestDirectory walks root and ingests every PDF under it. Per-file errors
// are collected, not returned.
func (uc *Usecase) IngestDirectory(ctx context.Context, root string, skipHidden bool, opts entity.RunOptions) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := uc.IngestPath(ctx, path, opts)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, Result: res})
		stats.Succeeded++
		if res.Duplicate {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	uc.logger.Info("directory ingest done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// AllowedExt checks if a file extension is accepted for intake.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
