package metar

import (
	"strings"
	"unicode"
)

// tokenize splits a report into groups after dropping the end-of-message
// mark. Any run of whitespace separates groups.
func tokenize(text string) []string {
	return strings.Fields(strings.TrimRight(strings.TrimSpace(text), "="))
}

// tokenSpans is tokenize with the byte offsets of every group in text, so a
// match can be returned exactly as it was written.
func tokenSpans(text string) ([]string, [][2]int) {
	s := strings.TrimRight(strings.TrimRightFunc(text, unicode.IsSpace), "=")
	var toks []string
	var spans [][2]int
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, s[start:i])
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, s[start:])
		spans = append(spans, [2]int{start, len(s)})
	}
	return toks, spans
}

// Extract returns the first occurrence of field in text. Callers scope text
// themselves, typically to Segments.Body. A match spanning several groups is
// returned as a substring of text, spacing included. For FieldObservation a missing
// match falls back to the whole input with "=" removed.
//
// Extract panics if field is not part of the lexicon.
func (l *Lexicon) Extract(field Field, text string) (string, bool) {
	p := l.pattern(field)
	toks, spans := tokenSpans(text)
	for i := range toks {
		if n := p(toks[i:]); n > 0 {
			return text[spans[i][0]:spans[i+n-1][1]], true
		}
	}
	if field == FieldObservation {
		return observationFallback(text), true
	}
	return "", false
}

// ExtractAll returns every non-overlapping occurrence of field in order, or
// nil when there is none.
func (l *Lexicon) ExtractAll(field Field, text string) []string {
	p := l.pattern(field)
	toks, spans := tokenSpans(text)
	var out []string
	for i := 0; i < len(toks); {
		n := p(toks[i:])
		if n == 0 {
			i++
			continue
		}
		out = append(out, text[spans[i][0]:spans[i+n-1][1]])
		i += n
	}
	if out == nil && field == FieldObservation {
		return []string{observationFallback(text)}
	}
	return out
}

func observationFallback(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "=", ""))
}
