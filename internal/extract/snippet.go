package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// Snippet returns the text around [start,end) with 50 bytes of context on
// each side, whitespace collapsed and capped at SnippetMaxLen runes.
func Snippet(text string, start, end int) string {
	lo := max(0, start-snippetContext)
	hi := min(len(text), end+snippetContext)
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return common.TruncateRunes(collapse(text[lo:hi]), constants.SnippetMaxLen)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
