package metar

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	minReportLength  = 10
	minReportGroups  = 4
	maxPlaceholders  = 12
	maxSpellingDrift = 2
)

var remarksMisspellings = map[string]bool{"RKM": true, "RMKK": true, "RMRK": true}

// trendMisspellings are corruptions of BECMG and TEMPO seen in real traffic.
var trendMisspellings = map[string]string{
	"EMPO":   "TEMPO",
	"TRMPO":  "TEMPO",
	"TEMOP":  "TEMPO",
	"TMPO":   "TEMPO",
	"TEPMO":  "TEMPO",
	"TEMPPO": "TEMPO",
	"TEMPOO": "TEMPO",
	"ECMG":   "BECMG",
	"BCECMG": "BECMG",
	"BCNG":   "BECMG",
	"BECMFG": "BECMG",
	"BECMGG": "BECMG",
	"BECMGA": "BECMG",
	"BGECMG": "BECMG",
	"BECGG":  "BECMG",
	"BEEMG":  "BECMG",
	"BEMG":   "BECMG",
	"MECMG":  "BECMG",
	"BECMF":  "BECMG",
	"BECMGM": "BECMG",
	"BCEMG":  "BECMG",
	"BECNG":  "BECMG",
	"BECML":  "BECMG",
	"BEMCG":  "BECMG",
}

var nosigMisspellings = map[string]bool{
	"NOSI":    true,
	"OSIG":    true,
	"NOSG":    true,
	"NSIG":    true,
	"NOSIGG":  true,
	"NNOSIG":  true,
	"NOSSIG":  true,
	"NOAISIG": true,
	"NOSZ":    true,
	"NOSIT":   true,
	"NOISG":   true,
}

// pressureLookalikes start with a pressure indicator but are not pressure
// groups.
var pressureLookalikes = map[string]bool{"AUTO": true, "AMD": true, "AO1": true, "AO2": true, "ALL": true}

var bodyKeywords = map[string]bool{
	"CAVOK": true, "NSC": true, "SKC": true, "NCD": true, "CLR": true, "NSW": true,
	"AUTO": true, "COR": true, "AMD": true, "CNL": true, "NIL": true,
	"WS": true, "ALL": true, "LDG": true, "TKOF": true, "RWY": true,
}

var trendKeywords = map[string]bool{
	"NSW": true, "CAVOK": true, "NSC": true, "SKC": true, "NCD": true, "CLR": true,
}

func checkText(c *checkContext) *ValidationError {
	if strings.TrimSpace(c.raw) == "" {
		return reject("empty", "", "Empty report")
	}
	if !utf8.ValidString(c.raw) {
		return reject("encoding", "", "Report is not valid UTF-8 text")
	}
	c.text = strings.TrimSpace(c.raw)
	return nil
}

func checkLineBreaks(c *checkContext) *ValidationError {
	if strings.ContainsAny(c.text, "\r\n") {
		return reject("line_break", "", "Report contains line breaks")
	}
	return nil
}

func checkRemarksMarker(c *checkContext) *ValidationError {
	for _, tok := range c.tokens {
		if remarksMisspellings[tok] {
			return reject("spelling", tok, "Spelling error: %s (expected RMK)", tok)
		}
	}
	return nil
}

func checkRemarks(c *checkContext) *ValidationError {
	if !c.seg.HasRemarks {
		return nil
	}
	if c.strict {
		return reject("strict_remarks", "RMK", "RMK section not allowed in strict mode")
	}
	for _, tok := range c.remarks {
		if isTrendKeyword(tok) {
			return reject("trend_in_remarks", tok, "TREND keyword %s found in RMK section", tok)
		}
	}
	return nil
}

func allowedChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	return r == ' ' || r == '\t' || r == '/' || r == '+' || r == '-'
}

func checkCharacters(c *checkContext) *ValidationError {
	var bad []string
	seen := make(map[rune]bool)
	for _, r := range joinTokens(c.main) {
		if allowedChar(r) || seen[r] {
			continue
		}
		seen[r] = true
		bad = append(bad, string(r))
	}
	if len(bad) > 0 {
		return reject("invalid_characters", strings.Join(bad, ""), "Invalid characters found: %s", strings.Join(bad, " "))
	}
	return nil
}

func checkTrendSpelling(c *checkContext) *ValidationError {
	for _, tok := range c.main {
		if want, ok := trendMisspellings[tok]; ok {
			return reject("spelling", tok, "Spelling error: %s (expected %s)", tok, want)
		}
	}
	return nil
}

func checkPlaceholders(c *checkContext) *ValidationError {
	for _, tok := range c.main {
		run := 0
		for i := 0; i < len(tok); i++ {
			if tok[i] != '/' {
				run = 0
				continue
			}
			if run++; run > maxPlaceholders {
				return reject("placeholder_run", tok, "Too many consecutive placeholders: %s", tok)
			}
		}
	}
	return nil
}

func checkLength(c *checkContext) *ValidationError {
	switch {
	case len(joinTokens(c.obs)) < minReportLength:
		return reject("too_short", "", "Report too short: %s", joinTokens(c.obs))
	case len(c.obs) < minReportGroups:
		return reject("too_short", "", "Report too short: %d groups", len(c.obs))
	case len(c.tokens) > c.lex.maxTokens:
		return reject("too_many_groups", "", "Too many groups: %d", len(c.tokens))
	}
	return nil
}

func checkHeader(c *checkContext) *ValidationError {
	first := c.at(0)
	if !isReportType(first) {
		if isStationCode(first) {
			return reject("missing_header", first, "Missing report type (METAR/SPECI/TAF) before %s", first)
		}
		return reject("report_type", first, "Invalid report type: %s", first)
	}

	i := matchKind(c.obs)
	if isReportType(c.at(i)) {
		return reject("duplicate_header", c.at(i), "Duplicate header: %s %s", first, c.at(i))
	}

	station := c.at(i)
	switch {
	case station == "":
		return reject("station", "", "Missing station identifier")
	case station == "COR":
		return reject("cor_position", station, "COR must follow report type")
	case !isStationCode(station):
		return reject("station", station, "Invalid station identifier: %s", station)
	}
	i++

	switch next := c.at(i); {
	case next == "COR":
		return reject("cor_position", next, "COR must follow report type")
	case isReportType(next) || next == station:
		return reject("duplicate_header", next, "Duplicate header: %s", next)
	}

	ts := c.at(i)
	day, hour, minute, ok := parseTime(ts)
	switch {
	case ts == "":
		return reject("time", "", "Missing observation time")
	case !ok:
		return reject("time", ts, "Invalid observation time format: %s", ts)
	case day < 1 || day > 31:
		return reject("time", ts, "Invalid observation time: %s (day %d)", ts, day)
	case hour > 23:
		return reject("time", ts, "Invalid observation time: %s (hour %d)", ts, hour)
	case minute > 59:
		return reject("time", ts, "Invalid observation time: %s (minute %d)", ts, minute)
	}
	i++

	if c.seg.forecast {
		if vt := c.at(i); validValidity(vt) {
			i++
		} else if _, _, _, _, ok := parseValidity(vt); ok {
			return reject("validity", vt, "Invalid validity period: %s", vt)
		}
	}
	if c.at(i) == "NIL" {
		c.accepted = true
		return nil
	}
	if c.at(i) == "AUTO" {
		i++
	}
	c.cursor = i
	return nil
}

// windLike matches tokens that are meant to be a wind group, well-formed
// or not.
func windLike(tok string) bool {
	if strings.HasSuffix(tok, "KT") || strings.HasSuffix(tok, "MPS") || strings.HasPrefix(tok, "VR") {
		return true
	}
	n := leadingDigits(tok)
	return n >= 3 && n < len(tok) && isUpper(tok[n])
}

func checkWind(c *checkContext) *ValidationError {
	tok := c.at(c.cursor)
	if tok == "" {
		return reject("missing_observation", "", "Missing observation data")
	}
	if !windLike(tok) {
		return nil
	}

	w, ok := parseWind(tok)
	if !ok {
		return malformedWind(c, tok)
	}
	if dir, numeric := w.bearing(); numeric && dir > 360 {
		return reject("wind", tok, "Invalid wind direction: %s", tok)
	}
	c.cursor++

	if from, to, ok := parseVariation(c.at(c.cursor)); ok {
		if from > 360 || to > 360 {
			return reject("wind", c.at(c.cursor), "Invalid wind variation: %s", c.at(c.cursor))
		}
		c.cursor++
	}
	if c.cursor >= len(c.obs) {
		return reject("missing_observation", "", "Missing observation data")
	}
	return nil
}

// malformedWind explains why a wind-like token failed to parse.
func malformedWind(c *checkContext, tok string) *ValidationError {
	for k := 1; k < len(tok); k++ {
		if _, ok := parseWind(tok[:k]); !ok {
			continue
		}
		if _, _, ok := parseVariation(tok[k:]); ok {
			return reject("wind", tok, "Invalid wind format: missing space before variation in %s", tok)
		}
	}
	joined := tok
	for n := 1; n <= 2; n++ {
		next := c.at(c.cursor + n)
		if next == "" {
			break
		}
		joined += next
		if _, ok := parseWind(joined); ok {
			span := joinTokens(c.obs[c.cursor : c.cursor+n+1])
			return reject("wind", tok, "Invalid wind format: unexpected space in %s", span)
		}
	}
	return reject("wind", tok, "Invalid wind format: %s", tok)
}

func checkPressure(c *checkContext) *ValidationError {
	for _, tok := range c.obs[c.cursor:] {
		if tok[0] != 'Q' && tok[0] != 'A' || pressureLookalikes[tok] {
			continue
		}
		// plain words are left to the group checks
		if tok[0] == 'A' && isLetters(tok) {
			continue
		}
		if _, ok := parsePressure(tok); !ok {
			return reject("qnh", tok, "Invalid QNH format: %s", tok)
		}
	}
	return nil
}

func isSingleLetter(tok string) bool { return len(tok) == 1 && isUpper(tok[0]) }

func checkEnding(c *checkContext) *ValidationError {
	last := c.main[len(c.main)-1]
	prev := ""
	if len(c.main) > 1 {
		prev = c.main[len(c.main)-2]
	}

	switch {
	case nosigMisspellings[last]:
		return reject("spelling", last, "Spelling error: %s (expected NOSIG)", last)
	case (last == "SIG" || last == "IG") && isLetters(prev) && len(prev) >= 2 &&
		levenshtein.ComputeDistance(prev+last, "NOSIG") <= maxSpellingDrift:
		return reject("spelling", prev+" "+last, "Spelling error: %s %s (expected NOSIG)", prev, last)
	case last == "DUPE":
		return reject("ending", last, "Invalid field at ending: %s", last)
	case len(last) == 1 && isDigit(last[0]):
		return reject("ending", last, "Isolated digit at ending: %s", last)
	case isSingleLetter(last) && isSingleLetter(prev):
		return reject("ending", prev+" "+last, "Isolated letters at ending: %s %s", prev, last)
	case isSingleLetter(last):
		return reject("ending", last, "Isolated letter at ending: %s", last)
	}
	return nil
}

func checkIsolated(c *checkContext) *ValidationError {
	rest := c.obs[c.cursor:]
	for i, tok := range rest {
		if len(tok) != 1 {
			continue
		}
		if isDigit(tok[0]) {
			if i+1 < len(rest) && isFractionMiles(rest[i+1]) {
				continue
			}
			return reject("isolated_value", tok, "Isolated digit: %s", tok)
		}
		return reject("isolated_value", tok, "Isolated letter: %s", tok)
	}
	return nil
}

// knownBodyGroup reports whether toks[0] is a recognized observation group.
func (c *checkContext) knownBodyGroup(toks []string) bool {
	tok := toks[0]
	if bodyKeywords[tok] || isSlashes(tok) || isDirectionalVisibility(tok) || isRunwayDesignator(tok) {
		return true
	}
	if matchVisibility(toks) > 0 || c.lex.isWeather(tok) {
		return true
	}
	if _, ok := parsePressure(tok); ok {
		return true
	}
	if _, _, ok := parseTemperature(tok); ok {
		return true
	}
	if _, ok := parseRVR(tok); ok {
		return true
	}
	if _, _, ok := parseVariation(tok); ok {
		return true
	}
	if _, ok := parseCloud(tok); ok {
		return true
	}
	if _, ok := parseVerticalVisibility(tok); ok {
		return true
	}
	if _, ok := parseWind(tok); ok {
		return true
	}
	return c.seg.forecast && forecastGroup(tok)
}

func forecastGroup(tok string) bool {
	if parseForecastMark(tok) {
		return true
	}
	if _, ok := parseProbability(tok); ok {
		return true
	}
	if g, ok := parseForecastTemp(tok); ok {
		return validForecastTime(g.Day, g.Hour)
	}
	return validValidity(tok)
}

// nearKeyword returns the trend keyword within spelling distance of tok.
func nearKeyword(tok string) (string, bool) {
	if len(tok) < 4 || !isLetters(tok) {
		return "", false
	}
	for _, kw := range []string{"NOSIG", "BECMG", "TEMPO"} {
		if levenshtein.ComputeDistance(tok, kw) <= maxSpellingDrift {
			return kw, true
		}
	}
	return "", false
}

// cloudShaped matches two or three letters followed by three digits and an
// optional type suffix, e.g. KN026 or FE023CB.
func cloudShaped(tok string) bool {
	n := 0
	for n < len(tok) && isUpper(tok[n]) {
		n++
	}
	if n < 2 || n > 3 || len(tok) < n+3 || !isDigits(tok[n:n+3]) {
		return false
	}
	suffix := tok[n+3:]
	return suffix == "" || suffix == "///" || (len(suffix) >= 2 && len(suffix) <= 3 && isLetters(suffix))
}

func hasCloudAmount(tok string) bool {
	for _, amt := range []string{"FEW", "SCT", "BKN", "OVC"} {
		if strings.HasPrefix(tok, amt) {
			return true
		}
	}
	return false
}

func checkBodyGroups(c *checkContext) *ValidationError {
	rest := c.obs[c.cursor:]
	for i := range rest {
		if c.knownBodyGroup(rest[i:]) {
			continue
		}
		if verr := classifyBodyGroup(rest, i); verr != nil {
			return verr
		}
	}
	return nil
}

// classifyBodyGroup names what is wrong with an unrecognized group.
func classifyBodyGroup(rest []string, i int) *ValidationError {
	tok := rest[i]
	if isDigits(tok) && len(tok) >= 2 && len(tok) <= 3 {
		return reject("isolated_value", tok, "Isolated numeric value: %s", tok)
	}
	if ind, ok := parseChangeTime(tok); ok {
		if i > 0 {
			if kw, ok := nearKeyword(rest[i-1]); ok && kw != "NOSIG" {
				return reject("spelling", rest[i-1], "Spelling error: %s (expected %s)", rest[i-1], kw)
			}
		}
		return reject("change_time", tok, "%s without BECMG/TEMPO: %s", ind, tok)
	}
	for _, kw := range []string{"BECMG", "TEMPO", "NOSIG"} {
		if strings.HasPrefix(tok, kw) && len(tok) > len(kw) {
			return reject("spacing", tok, "Missing space after %s: %s", kw, tok)
		}
	}
	switch {
	case cloudShaped(tok) && !hasCloudAmount(tok):
		return reject("cloud", tok, "Invalid cloud group: %s", tok)
	case hasCloudAmount(tok):
		return reject("cloud", tok, "Invalid cloud height: %s", tok)
	case looksLikeTemperature(tok):
		return reject("temperature", tok, "Invalid temperature format: %s", tok)
	case leadingDigits(tok) >= 4:
		return reject("visibility", tok, "Invalid visibility format: %s", tok)
	}
	if kw, ok := nearKeyword(tok); ok {
		return reject("spelling", tok, "Spelling error: %s (expected %s)", tok, kw)
	}
	if tok == "DUPE" {
		return reject("invalid_field", tok, "Invalid field: %s", tok)
	}
	return reject("suspicious_field", tok, "Suspicious field: %s", tok)
}

func checkTrend(c *checkContext) *ValidationError {
	announced := false
	for i, tok := range c.trend {
		switch tok {
		case "BECMG", "TEMPO":
			announced = true
			continue
		case "NOSIG":
			continue
		}
		if ind, ok := parseChangeTime(tok); ok {
			if !announced {
				return reject("change_time", tok, "%s without BECMG/TEMPO: %s", ind, tok)
			}
			continue
		}
		if verr := prohibitedInTrend(tok, c.seg.forecast); verr != nil {
			return verr
		}
		if c.knownTrendGroup(c.trend[i:]) {
			continue
		}
		return reject("trend", tok, "Suspicious field in TREND: %s", tok)
	}
	return nil
}

func prohibitedInTrend(tok string, forecast bool) *ValidationError {
	if _, ok := parseRVR(tok); ok {
		return reject("trend", tok, "RVR not allowed in TREND: %s", tok)
	}
	if _, ok := parsePressure(tok); ok {
		return reject("trend", tok, "QNH not allowed in TREND: %s", tok)
	}
	if _, _, ok := parseTemperature(tok); ok || looksLikeTemperature(tok) {
		return reject("trend", tok, "Temperature not allowed in TREND: %s", tok)
	}
	if tok == "WS" {
		return reject("trend", tok, "Wind shear not allowed in TREND: %s", tok)
	}
	if _, ok := parseProbability(tok); ok && !forecast {
		return reject("trend", tok, "PROB group not allowed in TREND: %s", tok)
	}
	return nil
}

func (c *checkContext) knownTrendGroup(toks []string) bool {
	tok := toks[0]
	if trendKeywords[tok] || isSlashes(tok) || matchVisibility(toks) > 0 || c.lex.isWeather(tok) {
		return true
	}
	if _, ok := parseWind(tok); ok {
		return true
	}
	if _, _, ok := parseVariation(tok); ok {
		return true
	}
	if _, ok := parseCloud(tok); ok {
		return true
	}
	if _, ok := parseVerticalVisibility(tok); ok {
		return true
	}
	return c.seg.forecast && forecastGroup(tok)
}
