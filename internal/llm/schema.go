package llm

// BuildAnswersJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the model as a structured output constraint and also use it locally to validate.
func BuildAnswersJSONSchema(fieldNames []string) map[string]any {
	answer := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"field":      map[string]any{"type": "string", "enum": fieldNames},
			"value":      map[string]any{"type": []string{"string", "number", "boolean"}},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"page":       map[string]any{"type": "integer", "minimum": 1},
			"snippet":    map[string]any{"type": "string", "maxLength": 400},
		},
		"required": []string{"field", "value", "confidence"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fields": map[string]any{"type": "array", "items": answer},
		},
		"required": []string{"fields"},
	}
}
