package llm

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// BuildSystemPrompt states the output contract and the rules for confidence and evidence.
func BuildSystemPrompt() string {
	parts := []string{
		"You extract fields from business contracts. Return ONLY JSON that matches the provided JSON Schema.",
		"Answer only the fields you are asked for; omit a field entirely when the contract does not state it.",
		"Use ISO-8601 dates (YYYY-MM-DD). Numbers are plain JSON numbers without currency symbols or separators.",
		"Currency must be a 3-letter ISO 4217 code.",
		"Booleans answer whether the clause exists.",
		"For every answer give 'confidence' between 0 and 1, the 1-based 'page' the value appears on, and a short verbatim 'snippet' copied from that page.",
		"If you cannot point to a page, omit 'page' and 'snippet' rather than guessing.",
		"Never output null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt lists the requested fields and the page-delimited document
// text, truncated to maxChars of text.
func BuildUserPrompt(req ExtractRequest, maxChars int) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.Filename); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\nFields to extract:\n")
	for _, f := range req.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(f.Category)
		b.WriteString(", ")
		b.WriteString(f.Type)
		b.WriteString("): ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}

	b.WriteString("\nContract text:\n")
	remaining := maxChars
	for _, p := range req.Pages {
		if maxChars > 0 && remaining <= 0 {
			b.WriteString("\n…(truncated)")
			break
		}
		b.WriteString("\n--- Page ")
		b.WriteString(strconv.Itoa(p.Number))
		b.WriteString(" ---\n")
		text := strings.TrimSpace(p.Text)
		if maxChars > 0 && len(text) > remaining {
			text = common.CutBytes(text, remaining) + "\n…(truncated)"
		}
		b.WriteString(text)
		remaining -= len(text)
	}
	return b.String()
}
