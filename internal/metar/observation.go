package metar

import "time"

// ReportType is the leading keyword of a report.
type ReportType string

const (
	TypeMETAR ReportType = "METAR"
	TypeSPECI ReportType = "SPECI"
	TypeTAF   ReportType = "TAF"
)

// Kind is the report type with its modifiers.
type Kind struct {
	Type         ReportType `json:"type"`
	Correction   bool       `json:"correction,omitempty"`
	Amendment    bool       `json:"amendment,omitempty"`
	Cancellation bool       `json:"cancellation,omitempty"`
}

// Wind is a decoded surface wind. Direction is nil for variable and calm
// winds. Speeds are m/s.
type Wind struct {
	Direction *int    `json:"direction"`
	Variable  bool    `json:"variable,omitempty"`
	Speed     int     `json:"speed"`
	Gust      *int    `json:"gust,omitempty"`
	Range     *[2]int `json:"range,omitempty"`
}

// CloudLayer is one cloud group. Amount is the covered fraction of sky.
type CloudLayer struct {
	Amount float64 `json:"amount"`
	Height *int    `json:"height"`
	Type   string  `json:"type,omitempty"`
}

const (
	CloudCumulonimbus    = "cumulonimbus"
	CloudToweringCumulus = "towering_cumulus"
)

// RunwayVisualRange is an Rdd/vvvv group. Bound is "above" or "below" when
// the value was outside the measurable range.
type RunwayVisualRange struct {
	Runway     string `json:"runway"`
	Visibility int    `json:"visibility"`
	Max        *int   `json:"max,omitempty"`
	Bound      string `json:"bound,omitempty"`
	Tendency   string `json:"tendency,omitempty"`
}

// ForecastTemperature is a TX or TN group.
type ForecastTemperature struct {
	Value int       `json:"value"`
	At    time.Time `json:"at"`
}

// Forecast carries the TAF-only groups.
type Forecast struct {
	ValidFrom      time.Time            `json:"valid_from"`
	ValidTo        time.Time            `json:"valid_to"`
	MaxTemperature *ForecastTemperature `json:"max_temperature,omitempty"`
	MinTemperature *ForecastTemperature `json:"min_temperature,omitempty"`
}

// Units names the unit of each quantity in an Observation.
type Units struct {
	WindDirection string `json:"wind_direction"`
	WindSpeed     string `json:"wind_speed"`
	Visibility    string `json:"visibility"`
	Temperature   string `json:"temperature"`
	Pressure      string `json:"pressure"`
	CloudHeight   string `json:"cloud_height"`
	CloudAmount   string `json:"cloud_amount"`
}

// StandardUnits are the units every Observation is normalized to.
var StandardUnits = Units{
	WindDirection: "degree",
	WindSpeed:     "m/s",
	Visibility:    "m",
	Temperature:   "degree C",
	Pressure:      "hPa",
	CloudHeight:   "m",
	CloudAmount:   "fraction",
}

// Observation is a decoded report. Pointer fields are nil when the report
// does not carry the group or carries only placeholders.
type Observation struct {
	Kind               Kind                `json:"kind"`
	Station            string              `json:"station"`
	Time               time.Time           `json:"time"`
	Wind               *Wind               `json:"wind"`
	Visibility         *int                `json:"visibility"`
	CAVOK              bool                `json:"cavok"`
	Temperature        *int                `json:"temperature"`
	DewPoint           *int                `json:"dew_point"`
	Pressure           *int                `json:"pressure"`
	Clouds             []CloudLayer        `json:"clouds"`
	Weather            []string            `json:"weather"`
	Auto               bool                `json:"auto"`
	RunwayVisualRanges []RunwayVisualRange `json:"runway_visual_ranges,omitempty"`
	VerticalVisibility *int                `json:"vertical_visibility,omitempty"`
	WindShear          []string            `json:"wind_shear,omitempty"`
	Trends             []string            `json:"trends,omitempty"`
	Remarks            string              `json:"remarks,omitempty"`
	Forecast           *Forecast           `json:"forecast,omitempty"`
	Units              Units               `json:"units"`
}
