package patterns

import (
	"regexp"
	"strings"
)

// Capture is one successful matcher hit on a page.
type Capture struct {
	Value      any
	Raw        string  // captured text before normalization
	Start, End int     // byte span of the whole match in the page text
	Confidence float64 // matcher base, plus the exact-capture bonus
}

// Matcher finds a field value in one page of text.
type Matcher interface {
	Match(text string) (Capture, bool)
	Base() float64
	String() string
}

// Normalizer converts raw captured text into a typed value. ok=false rejects the capture.
type Normalizer func(raw string) (value any, ok bool)

// exactBonus rewards captures that are the whole match ("USD" rather than "in USD").
const exactBonus = 0.1

// RegexMatcher reports the first capture group that normalizes successfully.
type RegexMatcher struct {
	re   *regexp.Regexp
	base float64
	norm Normalizer
}

// Regex compiles pattern; it panics on invalid patterns since catalogs are static.
func Regex(pattern string, base float64, norm Normalizer) *RegexMatcher {
	if norm == nil {
		norm = CleanText
	}
	return &RegexMatcher{re: regexp.MustCompile(pattern), base: base, norm: norm}
}

func (m *RegexMatcher) Base() float64  { return m.base }
func (m *RegexMatcher) String() string { return m.re.String() }

func (m *RegexMatcher) Match(text string) (Capture, bool) {
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		whole := text[loc[0]:loc[1]]
		raw := whole
		for g := 1; 2*g+1 < len(loc); g++ {
			if loc[2*g] >= 0 && loc[2*g+1] > loc[2*g] {
				raw = text[loc[2*g]:loc[2*g+1]]
				break
			}
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, ok := m.norm(raw)
		if !ok {
			continue
		}
		conf := m.base
		if strings.TrimSpace(whole) == raw {
			conf += exactBonus
		}
		if conf > 1 {
			conf = 1
		}
		return Capture{Value: v, Raw: raw, Start: loc[0], End: loc[1], Confidence: conf}, true
	}
	return Capture{}, false
}

// Label matches "Label: value" lines, taking the rest of the line as the value.
func Label(base float64, norm Normalizer, labels ...string) *RegexMatcher {
	alts := make([]string, len(labels))
	for i, l := range labels {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(l), ` `, `[ \t]+`)
	}
	return Regex(`(?im)^[ \t]*(?:`+strings.Join(alts, "|")+`)[ \t]*[:\-][ \t]*([^\n]+?)[ \t]*$`, base, norm)
}

// KeywordMatcher detects the presence of a clause. The value is always true.
type KeywordMatcher struct {
	re   *regexp.Regexp
	base float64
}

// Keyword matches any of the given regular expression phrases, case-insensitively.
func Keyword(base float64, phrases ...string) *KeywordMatcher {
	return &KeywordMatcher{re: regexp.MustCompile(`(?i)(?:` + strings.Join(phrases, "|") + `)`), base: base}
}

func (m *KeywordMatcher) Base() float64  { return m.base }
func (m *KeywordMatcher) String() string { return m.re.String() }

func (m *KeywordMatcher) Match(text string) (Capture, bool) {
	loc := m.re.FindStringIndex(text)
	if loc == nil {
		return Capture{}, false
	}
	return Capture{
		Value:      true,
		Raw:        text[loc[0]:loc[1]],
		Start:      loc[0],
		End:        loc[1],
		Confidence: m.base,
	}, true
}
