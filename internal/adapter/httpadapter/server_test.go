package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/metar-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	reports := httpadapter.NewReportHandler(metar.NewLexicon(metar.DefaultMaxTokens), discardLogger())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, reports, discardLogger())
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReportRoutesDisabled(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, discardLogger())
	rec := post(t, srv, "/v1/validate", `{"report":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	const withRemarks = "METAR RCTP 150700Z 23003KT 2000 -DZ BR SCT005 Q1010 NOSIG RMK RA AMT T="

	tests := []struct {
		name   string
		body   string
		want   metar.Verdict
		status int
	}{
		{
			name:   "accepted",
			body:   `{"report":"METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG="}`,
			want:   metar.Verdict{Accepted: true},
			status: http.StatusOK,
		},
		{
			name:   "rejected",
			body:   `{"report":"METAR ZBTJ 290200Z 35009MPS CAVOK M04/M27 Q102NOSIG="}`,
			want:   metar.Verdict{Rule: "qnh", Reason: "Invalid QNH format: Q102NOSIG"},
			status: http.StatusOK,
		},
		{
			name:   "remarks lenient",
			body:   `{"report":"` + withRemarks + `"}`,
			want:   metar.Verdict{Accepted: true},
			status: http.StatusOK,
		},
		{
			name:   "empty report",
			body:   `{"report":""}`,
			want:   metar.Verdict{Rule: "empty", Reason: "Empty report"},
			status: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestServer(nil), "/v1/validate", tt.body)
			require.Equal(t, tt.status, rec.Code)

			var got metar.Verdict
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("remarks strict", func(t *testing.T) {
		rec := post(t, newTestServer(nil), "/v1/validate", `{"report":"`+withRemarks+`","strict":true}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got metar.Verdict
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.Accepted)
		assert.NotEmpty(t, got.Rule)
	})
}

func TestValidateEndpoint_BadRequest(t *testing.T) {
	for _, body := range []string{"", "{not json", `{"text":"METAR"}`} {
		rec := post(t, newTestServer(nil), "/v1/validate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDecodeEndpoint(t *testing.T) {
	rec := post(t, newTestServer(nil), "/v1/decode",
		`{"report":"METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG=","year":2024,"month":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Observation metar.Observation `json:"observation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ZBAA", body.Observation.Station)
	assert.Equal(t, time.Date(2024, time.March, 31, 14, 0, 0, 0, time.UTC), body.Observation.Time)
	assert.True(t, body.Observation.CAVOK)
	require.NotNil(t, body.Observation.Pressure)
	assert.Equal(t, 1009, *body.Observation.Pressure)
}

func TestDecodeEndpoint_ResolvesPeriod(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 1, 0, 10, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	rec := post(t, newTestServer(nil), "/v1/decode", `{"report":"METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG="}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Observation metar.Observation `json:"observation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, time.Date(2024, time.March, 31, 14, 0, 0, 0, time.UTC), body.Observation.Time)
}

func TestDecodeEndpoint_NoObservation(t *testing.T) {
	rec := post(t, newTestServer(nil), "/v1/decode", `{"report":"METAR RCQC 301730Z NIL=","year":2024,"month":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"no_observation":true}`, rec.Body.String())
}

func TestDecodeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"missing station", `{"report":"METAR 311400Z 01002MPS CAVOK","year":2024,"month":3}`, http.StatusUnprocessableEntity, "icao"},
		{"empty report", `{"report":"  ","year":2024,"month":3}`, http.StatusUnprocessableEntity, "observ"},
		{"invalid month", `{"report":"METAR ZBAA 311400Z 01002MPS","year":2024,"month":13}`, http.StatusBadRequest, ""},
		{"invalid month without year", `{"report":"METAR ZBAA 311400Z 01002MPS","month":13}`, http.StatusBadRequest, ""},
		{"negative month", `{"report":"METAR ZBAA 311400Z 01002MPS","month":-1}`, http.StatusBadRequest, ""},
		{"invalid json", `{"report":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestServer(nil), "/v1/decode", tt.body)
			require.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, tt.field, body["field"])
		})
	}
}
