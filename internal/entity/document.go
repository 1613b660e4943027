package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// Document represents an uploaded contract for data transfer between layers.
type Document struct {
	ID           uuid.UUID                  `json:"id"`
	Filename     string                     `json:"filename"`
	ContentHash  string                     `json:"content_hash"`
	SizeBytes    int64                      `json:"size_bytes"`
	MIMEType     string                     `json:"mime_type"`
	StorageKey   string                     `json:"-"`
	UploadedAt   time.Time                  `json:"uploaded_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	Status       constants.ProcessingStatus `json:"status"`
	Progress     int                        `json:"processing_progress"`
	RunID        *uuid.UUID                 `json:"-"`
	RunStartedAt *time.Time                 `json:"-"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	OverallScore *float64                   `json:"overall_score,omitempty"`
	Options      RunOptions                 `json:"options"`
	Processing   *ProcessingMetadata        `json:"processing,omitempty"`
	Result       *ContractResult            `json:"-"`
}

// InFlight reports whether a run currently holds the document.
func (d *Document) InFlight() bool {
	return d.RunID != nil
}

// RunOptions are the caller-controlled switches for one pipeline run.
type RunOptions struct {
	ForceOCR bool `json:"use_ocr"`
	UseModel bool `json:"use_model"`
}

// StatusView is the cheap projection served to pollers.
type StatusView struct {
	ID           uuid.UUID                  `json:"id"`
	Status       constants.ProcessingStatus `json:"status"`
	Progress     int                        `json:"progress"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
}

// ListQuery drives the paginated document listing.
type ListQuery struct {
	Page      int
	Limit     int
	Status    *constants.ProcessingStatus
	SortBy    string // uploaded_at | overall_score | filename
	SortOrder string // asc | desc
}

// ListPage is one page of documents plus the unpaginated total.
type ListPage struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
