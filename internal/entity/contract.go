package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// ConfidenceSummary is derived from a FieldSet on every scoring pass.
type ConfidenceSummary struct {
	Average     float64 `json:"average"`
	LowCount    int     `json:"low_count"`
	HighCount   int     `json:"high_confidence_fields"`
	TotalFields int     `json:"total_fields"`
}

// ContractGap flags a required field that is missing or unreliable.
type ContractGap struct {
	Field    string              `json:"field"`
	Category constants.Category  `json:"category"`
	Reason   constants.GapReason `json:"reason"`
	Severity constants.Severity  `json:"severity"`
}

// ProcessingMetadata describes how a run went.
type ProcessingMetadata struct {
	OCRUsed        bool    `json:"ocr_used"`
	ModelUsed      bool    `json:"model_used"`
	DurationMS     int64   `json:"duration_ms"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	LibraryVersion string  `json:"library_version,omitempty"`
	PageCount      int     `json:"page_count"`
	ScannedPages   []int   `json:"scanned_pages,omitempty"`
}

// PageText is the per-page text kept for reviewers.
type PageText struct {
	Page    int    `json:"page"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// ContractResult is everything a completed run produces.
type ContractResult struct {
	Fields            FieldSet           `json:"fields"`
	ConfidenceSummary ConfidenceSummary  `json:"confidence_summary"`
	Gaps              []ContractGap      `json:"gaps"`
	OverallScore      float64            `json:"overall_score"`
	Processing        ProcessingMetadata `json:"processing"`
	Pages             []PageText         `json:"pages,omitempty"`
}

// Contract is the full result record served once a document is completed.
type Contract struct {
	ID                uuid.UUID                                        `json:"id"`
	Filename          string                                           `json:"filename"`
	Status            constants.ProcessingStatus                       `json:"status"`
	Fields            map[constants.Category]map[string]ExtractedField `json:"fields"`
	ConfidenceSummary ConfidenceSummary                                `json:"confidence_summary"`
	Gaps              []ContractGap                                    `json:"gaps"`
	OverallScore      float64                                          `json:"overall_score"`
	Processing        ProcessingMetadata                               `json:"processing"`
	Pages             []PageText                                       `json:"pages,omitempty"`
}
