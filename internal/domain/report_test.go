package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReport = "METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG="

func testLexicon() *metar.Lexicon {
	return metar.NewLexicon(metar.DefaultMaxTokens)
}

func TestParseRawEvent(t *testing.T) {
	received := time.Date(2024, time.April, 1, 0, 10, 0, 0, time.UTC)

	t.Run("plain text", func(t *testing.T) {
		raw := RawEvent{Value: []byte("  " + testReport + "\n"), Timestamp: received}
		report, err := ParseRawEvent(raw, testLexicon())

		require.NoError(t, err)
		assert.Equal(t, testReport, report.Text)
		assert.Equal(t, 2024, report.Year)
		assert.Equal(t, time.March, report.Month, "day 31 received on the 1st belongs to the previous month")
		assert.Equal(t, received, report.ReceivedAt)
	})

	t.Run("json payload with period", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"report":"` + testReport + `","year":2023,"month":12}`), Timestamp: received}
		report, err := ParseRawEvent(raw, testLexicon())

		require.NoError(t, err)
		assert.Equal(t, testReport, report.Text)
		assert.Equal(t, 2023, report.Year)
		assert.Equal(t, time.December, report.Month)
	})

	t.Run("json payload without period", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"report":"METAR ZBAA 010000Z 01002MPS CAVOK 14/12 Q1009"}`), Timestamp: received}
		report, err := ParseRawEvent(raw, testLexicon())

		require.NoError(t, err)
		assert.Equal(t, time.April, report.Month)
	})

	t.Run("period headers", func(t *testing.T) {
		raw := RawEvent{
			Value:     []byte(testReport),
			Headers:   map[string]string{HeaderReportYear: "2022", HeaderReportMonth: "7"},
			Timestamp: received,
		}
		report, err := ParseRawEvent(raw, testLexicon())

		require.NoError(t, err)
		assert.Equal(t, 2022, report.Year)
		assert.Equal(t, time.July, report.Month)
	})

	t.Run("invalid headers", func(t *testing.T) {
		raw := RawEvent{
			Value:   []byte(testReport),
			Headers: map[string]string{HeaderReportYear: "2022", HeaderReportMonth: "July"},
		}
		_, err := ParseRawEvent(raw, testLexicon())
		assert.ErrorContains(t, err, "report_month")
	})

	t.Run("invalid month", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"report":"` + testReport + `","year":2024,"month":13}`)}
		_, err := ParseRawEvent(raw, testLexicon())
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte("{invalid json")}, testLexicon())
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		for _, value := range []string{"", "   ", `{"report":"  "}`} {
			_, err := ParseRawEvent(RawEvent{Value: []byte(value)}, testLexicon())
			assert.ErrorIs(t, err, ErrEmptyPayload, value)
		}
	})

	t.Run("missing timestamp uses clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC)))
		t.Cleanup(func() { SetClock(nil) })

		report, err := ParseRawEvent(RawEvent{Value: []byte(testReport)}, testLexicon())
		require.NoError(t, err)
		assert.Equal(t, time.May, report.Month)
		assert.Equal(t, time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC), report.ReceivedAt)
	})
}

func TestReportPeriod(t *testing.T) {
	tests := []struct {
		name      string
		ts        time.Time
		day       int
		wantYear  int
		wantMonth time.Month
	}{
		{"same day", time.Date(2024, time.March, 16, 10, 0, 0, 0, time.UTC), 16, 2024, time.March},
		{"earlier day", time.Date(2024, time.March, 16, 10, 0, 0, 0, time.UTC), 2, 2024, time.March},
		{"later day", time.Date(2024, time.March, 1, 0, 5, 0, 0, time.UTC), 29, 2024, time.February},
		{"across the year", time.Date(2024, time.January, 1, 0, 5, 0, 0, time.UTC), 31, 2023, time.December},
		{"unknown day", time.Date(2024, time.March, 1, 0, 5, 0, 0, time.UTC), 0, 2024, time.March},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month := ReportPeriod(tt.ts, tt.day)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantMonth, month)
		})
	}
}

func TestNewDecodedReport(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	report := Report{Text: "TAF AMD ZBAA 151100Z 1512/1618 01004MPS 9999 NSC=", Year: 2024, Month: time.March}
	r := NewDecodedReport(testLexicon(), report)

	assert.Equal(t, "ZBAA", r.Station)
	assert.Equal(t, "TAF AMD", r.Kind)
	assert.True(t, strings.HasPrefix(r.ID, "ZBAA-"))
	assert.Equal(t, fakeClock.Now(), r.ProcessedAt)
	assert.False(t, r.Valid)
}

func TestGenerateID(t *testing.T) {
	a := generateID("ZBAA", "311400Z", testReport)
	b := generateID("ZBAA", "311400Z", "METAR  ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG")
	c := generateID("ZBAA", "311430Z", testReport)

	assert.Equal(t, a, b, "whitespace and end marker do not change the ID")
	assert.NotEqual(t, a, c)
	assert.Len(t, generateID("", "", "garbage"), 16)
}

func TestSerializeDecodedReport(t *testing.T) {
	processed := time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC)
	r := DecodedReport{
		ID:          "ZBAA-1",
		Station:     "ZBAA",
		Kind:        "METAR",
		Raw:         testReport,
		Valid:       true,
		Verdict:     &metar.Verdict{Accepted: true},
		ProcessedAt: processed,
	}

	out, err := SerializeDecodedReport(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("ZBAA-1"), out.Key)
	assert.Equal(t, map[string]string{
		"station":      "ZBAA",
		"kind":         "METAR",
		"valid":        "true",
		"processed_at": "2024-04-01T06:00:00Z",
	}, out.Headers)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &got))
	assert.Equal(t, "ZBAA-1", got["id"])
	assert.Equal(t, true, got["valid"])
	assert.NotContains(t, got, "observation")
}
