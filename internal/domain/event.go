package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/metar-etl/internal/metar"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ReportMessage is the JSON form of a source message. Year and Month are
// optional.
type ReportMessage struct {
	Report string `json:"report"`
	Year   int    `json:"year,omitempty"`
	Month  int    `json:"month,omitempty"`
}

// Report is one raw report together with the period its issue time falls in.
type Report struct {
	Text       string
	Year       int
	Month      time.Month
	ReceivedAt time.Time
}

// StationLocation is where a reporting station sits, as resolved by a
// StationLocator.
type StationLocation struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// Location sources recorded on a DecodedReport.
const (
	LocationGeocoded = "geocoded"
	LocationNotFound = "not_found"
	LocationFailed   = "failed"
)

// DecodedReport is the record published to the sink topic.
type DecodedReport struct {
	ID      string `json:"id"`
	Station string `json:"station,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Raw     string `json:"raw"`

	// Valid is false when the validator rejected the report; Verdict then
	// names the rule.
	Valid         bool               `json:"valid"`
	Verdict       *metar.Verdict     `json:"verdict,omitempty"`
	NoObservation bool               `json:"no_observation,omitempty"`
	Observation   *metar.Observation `json:"observation,omitempty"`

	Location       *StationLocation `json:"location,omitempty"`
	LocationSource string           `json:"location_source,omitempty"`

	ReceivedAt  time.Time `json:"received_at"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
