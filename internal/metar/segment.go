package metar

import "strings"

// Segments is the four-span view of a report. Each span is the
// space-joined run of groups it covers and is empty when absent.
type Segments struct {
	Header  string
	Body    string
	Trend   string
	Remarks string

	// HasRemarks is set when an RMK marker was found, even if nothing
	// follows it.
	HasRemarks bool

	forecast bool
	header   []string
	body     []string
	trend    []string
	remarks  []string
}

// Forecast reports whether the report is a TAF.
func (s Segments) Forecast() bool { return s.forecast }

// observation returns the header and body groups in report order.
func (s Segments) observation() []string {
	out := make([]string, 0, len(s.header)+len(s.body))
	out = append(out, s.header...)
	return append(out, s.body...)
}

// Segment splits text into header, body, trend and remarks. The header is
// the longest prefix of the form
//
//	[kind [COR|AMD [CNL]]] [station] [COR] [time] [TAF validity]
//
// the body runs to the first standalone trend keyword (and, for a TAF, the
// first FMddhhmm or PROBnn) and the trend runs to RMK. Segment never fails;
// malformed reports simply yield shorter spans.
func (l *Lexicon) Segment(text string) Segments {
	toks := tokenize(text)
	var s Segments

	for i, tok := range toks {
		if tok == "RMK" {
			s.HasRemarks = true
			s.remarks = toks[i+1:]
			toks = toks[:i]
			break
		}
	}

	i := 0
	if len(toks) > 0 {
		s.forecast = toks[0] == "TAF"
		i = matchKind(toks)
	}
	if i < len(toks) && isStationCode(toks[i]) {
		i++
	}
	if i < len(toks) && toks[i] == "COR" {
		i++
	}
	if i < len(toks) {
		if _, _, _, ok := parseTime(toks[i]); ok {
			i++
		}
	}
	if s.forecast && i < len(toks) {
		if _, _, _, _, ok := parseValidity(toks[i]); ok {
			i++
		}
	}
	s.header = toks[:i]

	j := i
	for j < len(toks) && !isTrendBoundary(toks[j], s.forecast) {
		j++
	}
	s.body = toks[i:j]
	s.trend = toks[j:]

	s.Header = strings.Join(s.header, " ")
	s.Body = strings.Join(s.body, " ")
	s.Trend = strings.Join(s.trend, " ")
	s.Remarks = strings.Join(s.remarks, " ")
	return s
}
