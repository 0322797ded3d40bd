package metar

import (
	"sort"
	"strings"
	"time"
)

const (
	knotsToMPS             = 0.5144444
	hPaPerInHg             = 33.8638
	cloudHeightUnit        = 20
	verticalVisibilityUnit = 30
	visibilityUnlimited    = 99999
)

// Decoder turns reports into Observations. It holds no per-call state and
// is safe for concurrent use.
type Decoder struct {
	lex   *Lexicon
	steps []decodeStep
}

// decodeStep fills in one group of an Observation from the report segments.
type decodeStep func(seg Segments, obs *Observation) error

// NewDecoder returns a Decoder reading fields through lex.
func NewDecoder(lex *Lexicon) *Decoder {
	d := &Decoder{lex: lex}
	d.steps = []decodeStep{
		d.decodeWind,
		d.decodeVisibility,
		d.decodeTemperature,
		d.decodePressure,
		d.decodeClouds,
		d.decodeWeather,
		d.decodeRunwayVisualRange,
		d.decodeVerticalVisibility,
		d.decodeForecastTemperature,
		d.decodeExtras,
	}
	return d
}

// Decode decodes text. year and month complete the issue time, which the
// report only carries as day, hour and minute. A report marked NIL yields
// ErrNoObservation; a malformed mandatory group yields a *DecodeError.
// Optional groups that are absent are left nil.
func (d *Decoder) Decode(text string, year int, month time.Month) (*Observation, error) {
	toks := tokenize(text)
	switch {
	case len(toks) == 0:
		return nil, &DecodeError{Field: FieldObservation, Err: ErrEmptyReport}
	case len(toks) > d.lex.maxTokens:
		return nil, &DecodeError{Field: FieldObservation, Err: ErrTooManyGroups}
	}

	seg := d.lex.Segment(text)
	if _, ok := d.lex.Extract(FieldNil, seg.Body); ok {
		return nil, ErrNoObservation
	}

	obs := &Observation{Units: StandardUnits}
	if err := d.decodeHeader(seg, year, month, obs); err != nil {
		return nil, err
	}
	for _, step := range d.steps {
		if err := step(seg, obs); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func (d *Decoder) decodeHeader(seg Segments, year int, month time.Month, obs *Observation) error {
	rest := seg.header
	next := func() string {
		if len(rest) > 0 {
			return rest[0]
		}
		if len(seg.body) > 0 {
			return seg.body[0]
		}
		return ""
	}

	n := 0
	if len(rest) > 0 {
		n = matchKind(rest)
	}
	if n == 0 {
		return &DecodeError{Field: FieldKind, Token: next(), Err: ErrMissingField}
	}
	obs.Kind = decodeKind(rest[:n])
	rest = rest[n:]

	if len(rest) == 0 || !isStationCode(rest[0]) {
		return &DecodeError{Field: FieldICAO, Token: next(), Err: ErrMissingField}
	}
	obs.Station = rest[0]
	rest = rest[1:]

	if len(rest) > 0 && rest[0] == "COR" {
		obs.Kind.Correction = true
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return &DecodeError{Field: FieldTime, Token: next(), Err: ErrMissingField}
	}
	ts, err := reportTime(rest[0], year, month)
	if err != nil {
		return err
	}
	obs.Time = ts
	rest = rest[1:]

	if len(rest) > 0 {
		fc, err := decodeValidity(rest[0], ts)
		if err != nil {
			return err
		}
		obs.Forecast = fc
	}
	return nil
}

func decodeKind(toks []string) Kind {
	k := Kind{Type: ReportType(toks[0])}
	for _, tok := range toks[1:] {
		switch tok {
		case "COR":
			k.Correction = true
		case "AMD":
			k.Amendment = true
		case "CNL":
			k.Cancellation = true
		}
	}
	return k
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// reportTime combines a ddhhmmZ group with the caller's year and month.
func reportTime(tok string, year int, month time.Month) (time.Time, error) {
	day, hour, minute, _ := parseTime(tok)
	if month < time.January || month > time.December ||
		day < 1 || day > daysIn(year, month) || hour > 23 || minute > 59 {
		return time.Time{}, &DecodeError{Field: FieldTime, Token: tok, Err: ErrOutOfRange}
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), nil
}

// forecastTime resolves a day and hour relative to the issue time. A day
// earlier than the issue day belongs to the following month; hour 24 rolls
// over to midnight.
func forecastTime(issued time.Time, day, hour int) time.Time {
	month := issued.Month()
	if day < issued.Day() {
		month++
	}
	return time.Date(issued.Year(), month, day, hour, 0, 0, 0, time.UTC)
}

func decodeValidity(tok string, issued time.Time) (*Forecast, error) {
	fromDay, fromHour, toDay, toHour, _ := parseValidity(tok)
	if !validValidity(tok) {
		return nil, &DecodeError{Field: FieldValidTime, Token: tok, Err: ErrOutOfRange}
	}
	return &Forecast{
		ValidFrom: forecastTime(issued, fromDay, fromHour),
		ValidTo:   forecastTime(issued, toDay, toHour),
	}, nil
}

func toMPS(v int, unit string) int {
	if unit == "KT" {
		return int(float64(v) * knotsToMPS)
	}
	return v
}

func (d *Decoder) decodeWind(seg Segments, obs *Observation) error {
	group, ok := d.lex.Extract(FieldWind, seg.Body)
	if !ok {
		return nil
	}
	parts := strings.Fields(group)
	w, _ := parseWind(parts[0])
	if w.Speed == "//" {
		return nil
	}

	wind := &Wind{Speed: toMPS(atoi(w.Speed), w.Unit)}
	dir, numeric := w.bearing()
	switch {
	case w.Direction == "VRB":
		wind.Variable = true
	case !numeric:
		// direction not reported
	case dir > 360:
		return &DecodeError{Field: FieldWind, Token: parts[0], Err: ErrOutOfRange}
	case dir == 0 && atoi(w.Speed) == 0:
		// calm
	default:
		wind.Direction = &dir
	}
	if w.Gust != "" {
		g := toMPS(atoi(w.Gust), w.Unit)
		wind.Gust = &g
	}
	if len(parts) == 2 {
		from, to, _ := parseVariation(parts[1])
		if from > 360 || to > 360 {
			return &DecodeError{Field: FieldWind, Token: parts[1], Err: ErrOutOfRange}
		}
		wind.Range = &[2]int{from, to}
	}
	obs.Wind = wind
	return nil
}

func (d *Decoder) decodeVisibility(seg Segments, obs *Observation) error {
	_, obs.CAVOK = d.lex.Extract(FieldCAVOK, seg.Body)

	group, ok := d.lex.Extract(FieldVisibility, seg.Body)
	if !ok {
		if obs.CAVOK {
			v := visibilityUnlimited
			obs.Visibility = &v
		}
		return nil
	}

	var v int
	if whole, frac, split := strings.Cut(group, " "); split {
		miles, _ := parseMiles(frac)
		v = int((float64(atoi(whole)) + miles) * metersPerMile)
	} else {
		v, _ = visibilityMeters(group)
	}
	obs.Visibility = &v
	return nil
}

func (d *Decoder) decodeTemperature(seg Segments, obs *Observation) error {
	group, ok := d.lex.Extract(FieldTempDew, seg.Body)
	if !ok {
		return nil
	}
	temp, dew, _ := parseTemperature(group)
	obs.Temperature, obs.DewPoint = &temp, &dew
	return nil
}

func (d *Decoder) decodePressure(seg Segments, obs *Observation) error {
	group, ok := d.lex.Extract(FieldQNH, seg.Body)
	if !ok {
		return nil
	}
	p, _ := parsePressure(group)
	if p.Value == "" {
		return nil
	}
	v := atoi(p.Value)
	if p.Indicator == 'A' {
		v = int(float64(v) * 0.01 * hPaPerInHg)
	}
	obs.Pressure = &v
	return nil
}

func (d *Decoder) decodeClouds(seg Segments, obs *Observation) error {
	groups := d.lex.ExtractAll(FieldCloud, seg.Body)
	sort.Strings(groups)

	obs.Clouds = make([]CloudLayer, 0, len(groups))
	for _, g := range groups {
		c, _ := parseCloud(g)
		layer := CloudLayer{Amount: d.lex.amounts[c.Amount]}
		if isDigits(c.Height) {
			h := atoi(c.Height) * cloudHeightUnit
			layer.Height = &h
		}
		switch c.Type {
		case "CB":
			layer.Type = CloudCumulonimbus
		case "TCU":
			layer.Type = CloudToweringCumulus
		}
		obs.Clouds = append(obs.Clouds, layer)
	}
	return nil
}

// decodeWeather runs after decodeClouds: without phenomenon groups the
// weather is derived from cloud cover.
func (d *Decoder) decodeWeather(seg Segments, obs *Observation) error {
	groups := d.lex.ExtractAll(FieldWeather, seg.Body)
	obs.Weather = make([]string, 0, len(groups))
	for _, g := range groups {
		phrase, _ := d.lex.describeWeather(g)
		obs.Weather = append(obs.Weather, phrase)
	}
	if len(obs.Weather) == 0 {
		obs.Weather = append(obs.Weather, skyCondition(obs.Clouds))
	}
	return nil
}

// skyCondition summarizes cloud cover by its most covered layer.
func skyCondition(layers []CloudLayer) string {
	most := 0.0
	for _, l := range layers {
		if l.Amount > most {
			most = l.Amount
		}
	}
	switch {
	case most == 0:
		return "Clear Sky"
	case most >= 1:
		return "Overcast"
	default:
		return "Cloudy"
	}
}

var (
	rvrBounds   = map[string]string{"P": "above", "M": "below"}
	rvrTendency = map[string]string{"U": "up", "D": "down", "N": "no_change"}
)

func (d *Decoder) decodeRunwayVisualRange(seg Segments, obs *Observation) error {
	for _, g := range d.lex.ExtractAll(FieldRVR, seg.Body) {
		r, _ := parseRVR(g)
		rvr := RunwayVisualRange{
			Runway:     r.Runway,
			Visibility: atoi(r.Min),
			Bound:      rvrBounds[r.MinPrefix],
			Tendency:   rvrTendency[r.Tendency],
		}
		if r.Max != "" {
			m := atoi(r.Max)
			rvr.Max = &m
		}
		obs.RunwayVisualRanges = append(obs.RunwayVisualRanges, rvr)
	}
	return nil
}

func (d *Decoder) decodeVerticalVisibility(seg Segments, obs *Observation) error {
	group, ok := d.lex.Extract(FieldVerticalVis, seg.Body)
	if !ok {
		return nil
	}
	if h, _ := parseVerticalVisibility(group); h != "" {
		v := atoi(h) * verticalVisibilityUnit
		obs.VerticalVisibility = &v
	}
	return nil
}

func (d *Decoder) decodeForecastTemperature(seg Segments, obs *Observation) error {
	if obs.Forecast == nil {
		return nil
	}
	for _, group := range d.lex.ExtractAll(FieldForecastTemp, seg.Body) {
		for _, tok := range strings.Fields(group) {
			g, _ := parseForecastTemp(tok)
			if !validForecastTime(g.Day, g.Hour) {
				return &DecodeError{Field: FieldForecastTemp, Token: tok, Err: ErrOutOfRange}
			}
			ft := &ForecastTemperature{Value: g.Value, At: forecastTime(obs.Time, g.Day, g.Hour)}
			if g.Kind == "TX" {
				obs.Forecast.MaxTemperature = ft
			} else {
				obs.Forecast.MinTemperature = ft
			}
		}
	}
	return nil
}

// decodeExtras carries groups that are kept verbatim.
func (d *Decoder) decodeExtras(seg Segments, obs *Observation) error {
	_, obs.Auto = d.lex.Extract(FieldAuto, seg.Body)
	obs.WindShear = d.lex.ExtractAll(FieldWindShear, seg.Body)
	if seg.Trend != "" {
		obs.Trends = d.lex.ExtractAll(FieldTrend, seg.Trend)
	}
	obs.Remarks = seg.Remarks
	return nil
}
