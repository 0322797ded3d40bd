package metar

import (
	"strconv"
	"strings"
)

// scanner walks a single token left to right. A failed method call leaves
// the position unchanged so alternatives can be tried in sequence.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) done() bool { return sc.pos == len(sc.s) }

// digits consumes exactly n ASCII digits.
func (sc *scanner) digits(n int) (string, bool) {
	if len(sc.s)-sc.pos < n {
		return "", false
	}
	for i := 0; i < n; i++ {
		if !isDigit(sc.s[sc.pos+i]) {
			return "", false
		}
	}
	out := sc.s[sc.pos : sc.pos+n]
	sc.pos += n
	return out, true
}

func (sc *scanner) literal(lit string) bool {
	if strings.HasPrefix(sc.s[sc.pos:], lit) {
		sc.pos += len(lit)
		return true
	}
	return false
}

// oneOf consumes the first alternative that matches; list longer
// alternatives before their prefixes.
func (sc *scanner) oneOf(lits ...string) (string, bool) {
	for _, lit := range lits {
		if sc.literal(lit) {
			return lit, true
		}
	}
	return "", false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isUpper(s[i]) {
			return false
		}
	}
	return true
}

func isSlashes(s string) bool {
	return s != "" && strings.Trim(s, "/") == ""
}

// leadingDigits counts the digits at the start of s.
func leadingDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// windGroup is a dddff[Gfmfm]MPS|KT token split into its raw parts.
type windGroup struct {
	Direction string // three digits, "VRB" or "///"
	Speed     string // two digits or "//"
	Gust      string // empty when absent
	Unit      string // "MPS" or "KT"
}

func parseWind(tok string) (windGroup, bool) {
	sc := scanner{s: tok}
	var w windGroup
	var ok bool
	if w.Direction, ok = sc.oneOf("VRB", "///"); !ok {
		if w.Direction, ok = sc.digits(3); !ok {
			return windGroup{}, false
		}
	}
	if w.Speed, ok = sc.digits(2); !ok {
		if !sc.literal("//") {
			return windGroup{}, false
		}
		w.Speed = "//"
	}
	if sc.literal("G") {
		if w.Gust, ok = sc.digits(2); !ok {
			return windGroup{}, false
		}
	}
	if w.Unit, ok = sc.oneOf("MPS", "KT"); !ok || !sc.done() {
		return windGroup{}, false
	}
	return w, true
}

// bearing returns the numeric direction, or false for VRB and placeholders.
func (w windGroup) bearing() (int, bool) {
	if !isDigits(w.Direction) {
		return 0, false
	}
	return atoi(w.Direction), true
}

// parseVariation reads a dddVddd direction range.
func parseVariation(tok string) (from, to int, ok bool) {
	sc := scanner{s: tok}
	a, ok1 := sc.digits(3)
	if !ok1 || !sc.literal("V") {
		return 0, 0, false
	}
	b, ok2 := sc.digits(3)
	if !ok2 || !sc.done() {
		return 0, 0, false
	}
	return atoi(a), atoi(b), true
}

const metersPerMile = 1609.34

// visibilityMeters decodes a prevailing visibility token: four digits or a
// statute-mile group such as 10SM, 1/2SM or P6SM.
func visibilityMeters(tok string) (int, bool) {
	if len(tok) == 4 && isDigits(tok) {
		switch tok {
		case "9999":
			return 99999, true
		case "0000":
			return 50, true
		}
		return atoi(tok), true
	}
	miles, ok := parseMiles(tok)
	if !ok {
		return 0, false
	}
	return int(miles * metersPerMile), true
}

func parseMiles(tok string) (float64, bool) {
	body, ok := strings.CutSuffix(tok, "SM")
	if !ok {
		return 0, false
	}
	if len(body) > 0 && (body[0] == 'P' || body[0] == 'M') {
		body = body[1:]
	}
	if num, den, frac := strings.Cut(body, "/"); frac {
		if len(num) != 1 || !isDigits(num) || len(den) < 1 || len(den) > 2 || !isDigits(den) || atoi(den) == 0 {
			return 0, false
		}
		return float64(atoi(num)) / float64(atoi(den)), true
	}
	if len(body) < 1 || len(body) > 2 || !isDigits(body) {
		return 0, false
	}
	return float64(atoi(body)), true
}

func isFractionMiles(tok string) bool {
	_, ok := parseMiles(tok)
	return ok && strings.Contains(tok, "/")
}

// isDirectionalVisibility matches a minimum visibility with a compass
// suffix, e.g. 3500S or 1200NE.
func isDirectionalVisibility(tok string) bool {
	if len(tok) < 5 || !isDigits(tok[:4]) {
		return false
	}
	switch tok[4:] {
	case "N", "S", "E", "W", "NE", "NW", "SE", "SW", "NDV":
		return true
	}
	return false
}

// cloudGroup is a cloud token split into amount, height and type.
type cloudGroup struct {
	Amount string // FEW, SCT, BKN, OVC, SKC, NSC, CLR or NCD
	Height string // three digits, "///" or empty
	Type   string // CB, TCU, "///" or empty
}

func parseCloud(tok string) (cloudGroup, bool) {
	sc := scanner{s: tok}
	if amt, ok := sc.oneOf("SKC", "NSC", "CLR", "NCD"); ok {
		if !sc.done() {
			return cloudGroup{}, false
		}
		return cloudGroup{Amount: amt}, true
	}
	var c cloudGroup
	var ok bool
	if c.Amount, ok = sc.oneOf("FEW", "SCT", "BKN", "OVC"); !ok {
		return cloudGroup{}, false
	}
	if c.Height, ok = sc.digits(3); !ok && sc.literal("///") {
		c.Height = "///"
	}
	if t, ok := sc.oneOf("TCU", "CB", "///"); ok {
		c.Type = t
	}
	if !sc.done() {
		return cloudGroup{}, false
	}
	return c, true
}

// parseVerticalVisibility reads VVhhh; the height is empty for VV///.
func parseVerticalVisibility(tok string) (string, bool) {
	sc := scanner{s: tok}
	if !sc.literal("VV") {
		return "", false
	}
	if h, ok := sc.digits(3); ok && sc.done() {
		return h, true
	}
	if sc.literal("///") && sc.done() {
		return "", true
	}
	return "", false
}

// parseTemperature reads an M?dd/M?dd temperature and dew point pair.
func parseTemperature(tok string) (temp, dew int, ok bool) {
	sc := scanner{s: tok}
	temp, ok = signedTwoDigits(&sc)
	if !ok || !sc.literal("/") {
		return 0, 0, false
	}
	dew, ok = signedTwoDigits(&sc)
	if !ok || !sc.done() {
		return 0, 0, false
	}
	return temp, dew, true
}

func signedTwoDigits(sc *scanner) (int, bool) {
	neg := sc.literal("M")
	d, ok := sc.digits(2)
	if !ok {
		return 0, false
	}
	v := atoi(d)
	if neg {
		v = -v
	}
	return v, true
}

// looksLikeTemperature matches slash-separated pairs that are close enough
// to a temperature group to be a malformed one, e.g. 0/10 or +3/M12.
func looksLikeTemperature(tok string) bool {
	a, b, ok := strings.Cut(tok, "/")
	return ok && signedNumber(a) && signedNumber(b)
}

func signedNumber(s string) bool {
	if s != "" && (s[0] == 'M' || s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) >= 1 && len(s) <= 3 && isDigits(s)
}

// pressureGroup is a Qhhhh or Annnn token. Value is empty for Q//// and A////.
type pressureGroup struct {
	Indicator byte
	Value     string
}

func parsePressure(tok string) (pressureGroup, bool) {
	if len(tok) != 5 || (tok[0] != 'Q' && tok[0] != 'A') {
		return pressureGroup{}, false
	}
	rest := tok[1:]
	switch {
	case isDigits(rest):
		return pressureGroup{Indicator: tok[0], Value: rest}, true
	case rest == "////":
		return pressureGroup{Indicator: tok[0]}, true
	}
	return pressureGroup{}, false
}

// rvrGroup is a runway visual range token such as R06/0900V1700N.
type rvrGroup struct {
	Runway    string
	MinPrefix string // "P", "M" or empty
	Min       string
	MaxPrefix string
	Max       string // empty when the range does not vary
	Tendency  string // "U", "D", "N" or empty
}

func parseRVR(tok string) (rvrGroup, bool) {
	sc := scanner{s: tok}
	var r rvrGroup
	var ok bool
	if !sc.literal("R") {
		return rvrGroup{}, false
	}
	if r.Runway, ok = sc.digits(2); !ok {
		return rvrGroup{}, false
	}
	if side, ok := sc.oneOf("L", "R", "C"); ok {
		r.Runway += side
	}
	if !sc.literal("/") {
		return rvrGroup{}, false
	}
	r.MinPrefix, _ = sc.oneOf("P", "M")
	if r.Min, ok = sc.digits(4); !ok {
		return rvrGroup{}, false
	}
	if sc.literal("V") {
		r.MaxPrefix, _ = sc.oneOf("P", "M")
		if r.Max, ok = sc.digits(4); !ok {
			return rvrGroup{}, false
		}
	}
	r.Tendency, _ = sc.oneOf("U", "D", "N")
	if !sc.done() {
		return rvrGroup{}, false
	}
	return r, true
}

// parseTime reads a ddhhmmZ issue time without range checks.
func parseTime(tok string) (day, hour, minute int, ok bool) {
	if len(tok) != 7 || tok[6] != 'Z' || !isDigits(tok[:6]) {
		return 0, 0, 0, false
	}
	return atoi(tok[0:2]), atoi(tok[2:4]), atoi(tok[4:6]), true
}

// parseChangeTime reads an FM, TL or AT hhmm trend time.
func parseChangeTime(tok string) (indicator string, ok bool) {
	sc := scanner{s: tok}
	if indicator, ok = sc.oneOf("FM", "TL", "AT"); !ok {
		return "", false
	}
	if _, ok = sc.digits(4); !ok || !sc.done() {
		return "", false
	}
	return indicator, true
}

// parseValidity reads a TAF validity period, ddhh/ddhh or the older ddhhhh.
func parseValidity(tok string) (fromDay, fromHour, toDay, toHour int, ok bool) {
	switch {
	case len(tok) == 9 && tok[4] == '/' && isDigits(tok[:4]) && isDigits(tok[5:]):
		return atoi(tok[0:2]), atoi(tok[2:4]), atoi(tok[5:7]), atoi(tok[7:9]), true
	case len(tok) == 6 && isDigits(tok):
		day := atoi(tok[0:2])
		return day, atoi(tok[2:4]), day, atoi(tok[4:6]), true
	}
	return 0, 0, 0, 0, false
}

// validForecastTime reports whether a TAF day and hour are in range. Hour 24
// marks the end of a day.
func validForecastTime(day, hour int) bool {
	return day >= 1 && day <= 31 && hour <= 24
}

// validValidity is parseValidity restricted to in-range periods.
func validValidity(tok string) bool {
	fromDay, fromHour, toDay, toHour, ok := parseValidity(tok)
	return ok && validForecastTime(fromDay, fromHour) && validForecastTime(toDay, toHour)
}

// parseForecastMark reads a TAF FMddhhmm change group.
func parseForecastMark(tok string) bool {
	return len(tok) == 8 && strings.HasPrefix(tok, "FM") && isDigits(tok[2:])
}

// parseProbability reads a PROBnn group.
func parseProbability(tok string) (int, bool) {
	rest, ok := strings.CutPrefix(tok, "PROB")
	if !ok || len(rest) != 2 || !isDigits(rest) {
		return 0, false
	}
	return atoi(rest), true
}

// forecastTempGroup is a TXtt/ddhhZ or TNtt/ddhhZ group.
type forecastTempGroup struct {
	Kind  string // "TX" or "TN"
	Value int
	Day   int
	Hour  int
}

func parseForecastTemp(tok string) (forecastTempGroup, bool) {
	sc := scanner{s: tok}
	var g forecastTempGroup
	var ok bool
	if g.Kind, ok = sc.oneOf("TX", "TN"); !ok {
		return forecastTempGroup{}, false
	}
	neg := sc.literal("M")
	start := sc.pos
	for sc.pos < len(sc.s) && isDigit(sc.s[sc.pos]) {
		sc.pos++
	}
	if n := sc.pos - start; n < 1 || n > 2 {
		return forecastTempGroup{}, false
	}
	g.Value = atoi(sc.s[start:sc.pos])
	if neg {
		g.Value = -g.Value
	}
	if !sc.literal("/") {
		return forecastTempGroup{}, false
	}
	dh, ok := sc.digits(4)
	if !ok || !sc.literal("Z") || !sc.done() {
		return forecastTempGroup{}, false
	}
	g.Day, g.Hour = atoi(dh[:2]), atoi(dh[2:])
	return g, true
}

// isRunwayDesignator matches the runway part of a wind shear group:
// RWY, RWY07L or R07L.
func isRunwayDesignator(tok string) bool {
	rest, ok := strings.CutPrefix(tok, "RWY")
	if !ok {
		rest, ok = strings.CutPrefix(tok, "R")
		if !ok || rest == "" {
			return false
		}
	}
	if rest == "" {
		return true
	}
	if len(rest) < 2 || !isDigits(rest[:2]) {
		return false
	}
	switch rest[2:] {
	case "", "L", "R", "C":
		return true
	}
	return false
}
