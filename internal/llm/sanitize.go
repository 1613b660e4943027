package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// snippetMaxRunes matches the schema's maxLength, which counts characters.
const snippetMaxRunes = 400

var answerKeys = []string{"field", "value", "confidence", "page", "snippet"}

// SanitizeAnswers repairs common deviations so a mostly-right response can
// still validate:
//   - a top-level object keyed by field name becomes the "fields" array
//   - answers for unknown fields, null or empty values, or confidences outside
//     [0,1] are dropped
//   - an unusable page drops both page and snippet
//   - unknown keys are removed
func SanitizeAnswers(raw []byte, known []string, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	items, ok := m["fields"].([]any)
	if !ok {
		// {"effective_date": {"value": ..., "confidence": ...}, ...}
		for _, name := range known {
			obj, isObj := m[name].(map[string]any)
			if !isObj {
				continue
			}
			obj["field"] = name
			items = append(items, obj)
		}
		dropped = append(dropped, "fields(reshaped)")
	}

	out := make([]any, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			dropped = append(dropped, "item(type)")
			continue
		}
		name, _ := obj["field"].(string)
		name = strings.TrimSpace(name)
		if !slices.Contains(known, name) {
			dropped = append(dropped, name+"(unknown)")
			continue
		}
		obj["field"] = name

		switch v := obj["value"].(type) {
		case nil:
			dropped = append(dropped, name+"(null)")
			continue
		case string:
			s := strings.TrimSpace(v)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
				dropped = append(dropped, name+"(empty)")
				continue
			}
			obj["value"] = s
		case float64, bool:
		default:
			dropped = append(dropped, name+"(type)")
			continue
		}

		conf, ok := obj["confidence"].(float64)
		if !ok || math.IsNaN(conf) || conf < 0 || conf > 1 {
			dropped = append(dropped, name+"(confidence)")
			continue
		}

		if p, ok := obj["page"]; ok {
			f, isNum := p.(float64)
			if !isNum || f < 1 || f != math.Trunc(f) {
				delete(obj, "page")
				delete(obj, "snippet")
				dropped = append(dropped, name+".page")
			}
		}
		if s, ok := obj["snippet"]; ok {
			str, isStr := s.(string)
			switch {
			case !isStr || strings.TrimSpace(str) == "":
				delete(obj, "snippet")
			case utf8.RuneCountInString(str) > snippetMaxRunes:
				obj["snippet"] = common.TruncateRunes(str, snippetMaxRunes)
			}
		}
		for k := range obj {
			if !slices.Contains(answerKeys, k) {
				delete(obj, k)
			}
		}
		out = append(out, obj)
	}

	b, err := json.Marshal(map[string]any{"fields": out})
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}

// DecodeAnswers parses a validated response document.
func DecodeAnswers(doc []byte) ([]FieldAnswer, error) {
	var out struct {
		Fields []FieldAnswer `json:"fields"`
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return out.Fields, nil
}
