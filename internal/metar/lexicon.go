package metar

import "fmt"

// Field identifies a semantic group of a report.
type Field string

const (
	FieldKind         Field = "kind"
	FieldTime         Field = "time"
	FieldICAO         Field = "icao"
	FieldWind         Field = "wind"
	FieldTempDew      Field = "temp/dew"
	FieldQNH          Field = "qnh"
	FieldAuto         Field = "auto"
	FieldCorrect      Field = "correct"
	FieldCAVOK        Field = "cavok"
	FieldRVR          Field = "rvr"
	FieldVerticalVis  Field = "vvis"
	FieldVisibility   Field = "vis"
	FieldCloud        Field = "cloud"
	FieldWeather      Field = "weather"
	FieldWindShear    Field = "wshear"
	FieldTrend        Field = "trend"
	FieldChangeTime   Field = "vartime"
	FieldObservation  Field = "observ"
	FieldValidTime    Field = "validtime"
	FieldCancel       Field = "cancel"
	FieldAmend        Field = "amend"
	FieldForecastTemp Field = "txtn"
	FieldNil          Field = "nil"
	FieldNoSigWeather Field = "nsw"
	FieldProbability  Field = "prob"
	FieldRemarks      Field = "rmk"
)

// DefaultMaxTokens bounds the number of groups a single report may carry.
const DefaultMaxTokens = 64

// pattern reports how many leading tokens of toks form one occurrence of a
// field; zero means no match. toks is never empty.
type pattern func(toks []string) int

// Lexicon holds the field grammar shared by the Decoder and the Validator.
// It is built once and never mutated, so any number of goroutines may use it.
type Lexicon struct {
	patterns  map[Field]pattern
	weather   *codeTrie
	amounts   map[string]float64
	maxTokens int
}

// NewLexicon builds the field table. maxTokens <= 0 selects DefaultMaxTokens.
func NewLexicon(maxTokens int) *Lexicon {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	l := &Lexicon{
		weather: newCodeTrie(phenomena),
		amounts: map[string]float64{
			"FEW": 0.25,
			"SCT": 0.5,
			"BKN": 0.75,
			"OVC": 1,
			"SKC": 0,
			"NSC": 0,
			"CLR": 0,
			"NCD": 0,
		},
		maxTokens: maxTokens,
	}

	l.patterns = map[Field]pattern{
		FieldKind:         matchKind,
		FieldTime:         single(func(tok string) bool { _, _, _, ok := parseTime(tok); return ok }),
		FieldICAO:         single(isStationCode),
		FieldWind:         matchWind,
		FieldTempDew:      single(func(tok string) bool { _, _, ok := parseTemperature(tok); return ok }),
		FieldQNH:          single(func(tok string) bool { _, ok := parsePressure(tok); return ok }),
		FieldAuto:         keyword("AUTO"),
		FieldCorrect:      keyword("COR"),
		FieldCAVOK:        keyword("CAVOK"),
		FieldRVR:          single(func(tok string) bool { _, ok := parseRVR(tok); return ok }),
		FieldVerticalVis:  single(func(tok string) bool { _, ok := parseVerticalVisibility(tok); return ok }),
		FieldVisibility:   matchVisibility,
		FieldCloud:        single(func(tok string) bool { _, ok := parseCloud(tok); return ok }),
		FieldWeather:      single(l.isWeather),
		FieldWindShear:    matchWindShear,
		FieldTrend:        matchTrend,
		FieldChangeTime:   single(func(tok string) bool { _, ok := parseChangeTime(tok); return ok }),
		FieldObservation:  matchObservation,
		FieldValidTime:    single(func(tok string) bool { _, _, _, _, ok := parseValidity(tok); return ok }),
		FieldCancel:       keyword("CNL"),
		FieldAmend:        keyword("AMD"),
		FieldForecastTemp: matchForecastTemp,
		FieldNil:          keyword("NIL"),
		FieldNoSigWeather: keyword("NSW"),
		FieldProbability:  single(func(tok string) bool { _, ok := parseProbability(tok); return ok }),
		FieldRemarks:      keyword("RMK"),
	}
	return l
}

// MaxTokens returns the per-report group limit.
func (l *Lexicon) MaxTokens() int { return l.maxTokens }

func (l *Lexicon) pattern(f Field) pattern {
	p, ok := l.patterns[f]
	if !ok {
		panic(fmt.Sprintf("metar: unknown field %q", f))
	}
	return p
}

func single(match func(string) bool) pattern {
	return func(toks []string) int {
		if match(toks[0]) {
			return 1
		}
		return 0
	}
}

func keyword(word string) pattern {
	return single(func(tok string) bool { return tok == word })
}

var reportTypes = map[string]bool{"METAR": true, "SPECI": true, "TAF": true}

func isReportType(tok string) bool { return reportTypes[tok] }

// reservedWords are four-letter groups that are never station identifiers.
var reservedWords = map[string]bool{"AUTO": true, "DUPE": true, "PROB": true}

func isStationCode(tok string) bool {
	return len(tok) == 4 && isLetters(tok) && !reservedWords[tok]
}

// isTrendKeyword reports whether tok opens a METAR trend group.
func isTrendKeyword(tok string) bool {
	return tok == "BECMG" || tok == "TEMPO" || tok == "NOSIG"
}

// isTrendBoundary extends isTrendKeyword with the TAF change groups.
func isTrendBoundary(tok string, forecast bool) bool {
	if isTrendKeyword(tok) {
		return true
	}
	if !forecast {
		return false
	}
	_, prob := parseProbability(tok)
	return prob || parseForecastMark(tok)
}

// matchKind reads METAR [COR], SPECI [COR] or TAF [AMD [CNL] | COR].
func matchKind(toks []string) int {
	at := func(i int) string {
		if i < len(toks) {
			return toks[i]
		}
		return ""
	}
	switch toks[0] {
	case "METAR", "SPECI":
		if at(1) == "COR" {
			return 2
		}
		return 1
	case "TAF":
		switch at(1) {
		case "AMD":
			if at(2) == "CNL" {
				return 3
			}
			return 2
		case "COR":
			return 2
		}
		return 1
	}
	return 0
}

// matchWind reads a wind group and an optional direction range after it.
func matchWind(toks []string) int {
	if _, ok := parseWind(toks[0]); !ok {
		return 0
	}
	if len(toks) > 1 {
		if _, _, ok := parseVariation(toks[1]); ok {
			return 2
		}
	}
	return 1
}

// matchVisibility reads a prevailing visibility, including the two-group
// whole-and-fraction mile form ("1 1/2SM").
func matchVisibility(toks []string) int {
	if _, ok := visibilityMeters(toks[0]); ok {
		return 1
	}
	if len(toks) > 1 && len(toks[0]) == 1 && isDigits(toks[0]) && isFractionMiles(toks[1]) {
		return 2
	}
	return 0
}

// matchWindShear reads WS [LDG|TKOF|ALL] RWYnn.
func matchWindShear(toks []string) int {
	if toks[0] != "WS" {
		return 0
	}
	i := 1
	if i < len(toks) && (toks[i] == "LDG" || toks[i] == "TKOF" || toks[i] == "ALL") {
		i++
	}
	if i < len(toks) && isRunwayDesignator(toks[i]) {
		return i + 1
	}
	return 0
}

// matchTrend reads one change group: its opening keyword and every group
// up to the next opening keyword or RMK. A PROBnn directly followed by TEMPO
// stays in one group.
func matchTrend(toks []string) int {
	head := toks[0]
	_, prob := parseProbability(head)
	if !isTrendKeyword(head) && !prob && !parseForecastMark(head) {
		return 0
	}
	i := 1
	if prob && i < len(toks) && toks[i] == "TEMPO" {
		i++
	}
	for i < len(toks) && toks[i] != "RMK" && !isTrendBoundary(toks[i], true) {
		i++
	}
	return i
}

// matchObservation reads from a report type up to, but not including, the
// first trend keyword or RMK. No match when no boundary follows.
func matchObservation(toks []string) int {
	if !isReportType(toks[0]) {
		return 0
	}
	for i := 1; i < len(toks); i++ {
		if isTrendKeyword(toks[i]) || toks[i] == "RMK" {
			return i
		}
	}
	return 0
}

// matchForecastTemp reads TX and TN groups, alone or as a pair.
func matchForecastTemp(toks []string) int {
	g, ok := parseForecastTemp(toks[0])
	if !ok {
		return 0
	}
	if g.Kind == "TX" && len(toks) > 1 {
		if next, ok := parseForecastTemp(toks[1]); ok && next.Kind == "TN" {
			return 2
		}
	}
	return 1
}
