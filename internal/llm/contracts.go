package llm

import "context"

// FieldSpec tells the model what one field means.
type FieldSpec struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Type        string `json:"type"` // string | number | boolean | date
	Description string `json:"description"`
}

// PageText is one page of document text, 1-based.
type PageText struct {
	Number int
	Text   string
}

// ExtractRequest asks for several fields in one call.
type ExtractRequest struct {
	Filename string
	Fields   []FieldSpec
	Pages    []PageText
}

// FieldAnswer is the model's answer for one field. Page is 0 when the model
// could not say where the value came from.
type FieldAnswer struct {
	Field      string  `json:"field"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
}

// FieldExtractor is the probabilistic fallback the extraction engine depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) ([]FieldAnswer, error)
}
