package entity

import (
	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// Evidence locates the text that substantiates a value.
type Evidence struct {
	Page    int              `json:"page"`
	Snippet string           `json:"snippet"`
	Source  constants.Source `json:"source"`
}

// ExtractedField is one field's value. Value is string, float64, bool or a YYYY-MM-DD string.
type ExtractedField struct {
	Value            any              `json:"value"`
	Confidence       float64          `json:"confidence"`
	Source           constants.Source `json:"source"`
	Evidence         *Evidence        `json:"evidence,omitempty"`
	NoEvidenceReason string           `json:"no_evidence_reason,omitempty"`
}

// FieldSet maps field names to their extracted values. Absent keys are unextracted fields.
type FieldSet map[string]ExtractedField
