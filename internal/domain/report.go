package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/metar-etl/internal/metar"
)

// Message headers that pin the report period.
const (
	HeaderReportYear  = "report_year"
	HeaderReportMonth = "report_month"
)

// ErrEmptyPayload is returned for source messages without report text.
var ErrEmptyPayload = errors.New("empty report payload")

// ParseRawEvent reads the report carried by a source message and resolves
// its year and month.
func ParseRawEvent(raw RawEvent, lex *metar.Lexicon) (Report, error) {
	var msg ReportMessage
	value := bytes.TrimSpace(raw.Value)
	if len(value) > 0 && value[0] == '{' {
		if err := json.Unmarshal(value, &msg); err != nil {
			return Report{}, fmt.Errorf("parse raw event: %w", err)
		}
	} else {
		msg.Report = string(value)
	}

	msg.Report = strings.TrimSpace(msg.Report)
	if msg.Report == "" {
		return Report{}, fmt.Errorf("parse raw event: %w", ErrEmptyPayload)
	}

	if msg.Year == 0 || msg.Month == 0 {
		year, month, err := periodFromHeaders(raw.Headers)
		if err != nil {
			return Report{}, fmt.Errorf("parse raw event: %w", err)
		}
		msg.Year, msg.Month = year, month
	}

	report := Report{Text: msg.Report, ReceivedAt: raw.Timestamp}
	if report.ReceivedAt.IsZero() {
		report.ReceivedAt = clock.Now().UTC()
	}

	if msg.Year != 0 && msg.Month != 0 {
		if msg.Month < 1 || msg.Month > 12 {
			return Report{}, fmt.Errorf("parse raw event: invalid month %d", msg.Month)
		}
		report.Year, report.Month = msg.Year, time.Month(msg.Month)
		return report, nil
	}

	report.Year, report.Month = ResolvePeriod(lex, msg.Report, report.ReceivedAt)
	return report, nil
}

// periodFromHeaders returns zeros when the headers are absent.
func periodFromHeaders(headers map[string]string) (int, int, error) {
	ys, ms := headers[HeaderReportYear], headers[HeaderReportMonth]
	if ys == "" || ms == "" {
		return 0, 0, nil
	}
	year, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s header %q", HeaderReportYear, ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s header %q", HeaderReportMonth, ms)
	}
	return year, month, nil
}

// ResolvePeriod infers the year and month of a report's issue time from the
// time it was received. A zero received time means now.
func ResolvePeriod(lex *metar.Lexicon, text string, received time.Time) (int, time.Month) {
	if received.IsZero() {
		received = clock.Now()
	}
	day := 0
	if tok, ok := lex.Extract(metar.FieldTime, lex.Segment(text).Header); ok {
		day, _ = strconv.Atoi(tok[:2])
	}
	return ReportPeriod(received, day)
}

// ReportPeriod returns the year and month a report issued on day belongs
// to, given it was received at ts. A day later than ts's day belongs to the
// previous month.
func ReportPeriod(ts time.Time, day int) (int, time.Month) {
	ts = ts.UTC()
	if day > ts.Day() {
		prev := time.Date(ts.Year(), ts.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return prev.Year(), prev.Month()
	}
	return ts.Year(), ts.Month()
}

// NewDecodedReport starts the output record for report. The station, kind
// and ID are taken from the report header whether or not the report later
// validates.
func NewDecodedReport(lex *metar.Lexicon, report Report) DecodedReport {
	header := lex.Segment(report.Text).Header
	station, _ := lex.Extract(metar.FieldICAO, header)
	kind, _ := lex.Extract(metar.FieldKind, header)
	issued, _ := lex.Extract(metar.FieldTime, header)

	return DecodedReport{
		ID:          generateID(station, issued, report.Text),
		Station:     station,
		Kind:        kind,
		Raw:         report.Text,
		ReceivedAt:  report.ReceivedAt,
		ProcessedAt: clock.Now().UTC(),
	}
}

// generateID hashes the report identity. The same report text always maps
// to the same ID so the sink can deduplicate replays.
func generateID(station, issued, text string) string {
	normalized := strings.Join(strings.Fields(strings.ReplaceAll(text, "=", " ")), " ")
	hash := sha256.Sum256([]byte(station + "|" + issued + "|" + normalized))
	short := hex.EncodeToString(hash[:8])
	if station == "" {
		return short
	}
	return station + "-" + short
}

// SerializeDecodedReport marshals a report into an OutputEvent keyed by ID.
func SerializeDecodedReport(r DecodedReport) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize decoded report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"station":      r.Station,
			"kind":         r.Kind,
			"valid":        strconv.FormatBool(r.Valid),
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
