package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"github.com/couchcryptid/metar-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	fails  int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

type mockLocator struct {
	loc domain.StationLocation
}

func (m *mockLocator) LocateStation(_ context.Context, _ string) (domain.StationLocation, error) {
	return m.loc, nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent("evt-1", testReport)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Equal(t, 1, ldr.count())
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, blocks
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformError(t *testing.T) {
	committed := false
	raw := makeRawEvent("evt-2", testReport)
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad data")}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.True(t, committed, "unusable messages are committed so they are not redelivered")
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	batch := make([]domain.RawEvent, 3)
	for i := range batch {
		batch[i] = makeRawEvent("evt", testReport)
		batch[i].Topic = "raw-metar-reports"
		batch[i].Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 3, ldr.count())
	assert.Equal(t, int32(3), commits.Load())
}

func TestPipeline_Run_LoadFailureSkipsCommit(t *testing.T) {
	committed := false
	raw := makeRawEvent("evt-3", testReport)
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{fails: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.False(t, committed)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("connection refused")}

	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
}

// --- transformer tests ---

const testReport = "METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG="

var testReceived = time.Date(2024, time.March, 31, 14, 5, 0, 0, time.UTC)

func newTestTransformer(t *testing.T, strict bool, locator domain.StationLocator) (*pipeline.ReportTransformer, *observability.Metrics) {
	t.Helper()
	lex := metar.NewLexicon(metar.DefaultMaxTokens)
	metrics := newTestMetrics()
	v := metar.NewValidator(lex, metar.ValidatorOptions{Strict: strict})
	return pipeline.NewTransformer(lex, v, locator, metrics, discardLogger()), metrics
}

func decodeOutput(t *testing.T, out domain.OutputEvent) domain.DecodedReport {
	t.Helper()
	var r domain.DecodedReport
	require.NoError(t, json.Unmarshal(out.Value, &r))
	return r
}

func TestReportTransformer_Transform(t *testing.T) {
	tfm, _ := newTestTransformer(t, false, nil)

	raw := makeRawEvent("k", testReport)

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "true", out.Headers["valid"])
	assert.Equal(t, "ZBAA", out.Headers["station"])

	r := decodeOutput(t, out)
	assert.Equal(t, out.Key, []byte(r.ID))
	assert.True(t, r.Valid)
	require.NotNil(t, r.Verdict)
	assert.True(t, r.Verdict.Accepted)
	require.NotNil(t, r.Observation)
	assert.Equal(t, "ZBAA", r.Observation.Station)
	assert.Equal(t, time.Date(2024, time.March, 31, 14, 0, 0, 0, time.UTC), r.Observation.Time)
	assert.Empty(t, r.LocationSource)
}

func TestReportTransformer_Rejected(t *testing.T) {
	tfm, metrics := newTestTransformer(t, false, nil)

	out, err := tfm.Transform(context.Background(), makeRawEvent("k", "METAR ZBTJ 290200Z 35009MPS CAVOK M04/M27 Q102NOSIG="))
	require.NoError(t, err)
	assert.Equal(t, "false", out.Headers["valid"])

	r := decodeOutput(t, out)
	assert.False(t, r.Valid)
	assert.Nil(t, r.Observation)
	want := metar.Verdict{Rule: "qnh", Reason: "Invalid QNH format: Q102NOSIG"}
	if diff := cmp.Diff(&want, r.Verdict); diff != "" {
		t.Fatalf("verdict mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ValidationRejections.WithLabelValues("qnh")), 0)
}

func TestReportTransformer_Strict(t *testing.T) {
	text := "METAR RCTP 150700Z 23003KT 2000 -DZ BR SCT005 Q1010 NOSIG RMK RA AMT T="

	lenient, _ := newTestTransformer(t, false, nil)
	out, err := lenient.Transform(context.Background(), makeRawEvent("k", text))
	require.NoError(t, err)
	assert.True(t, decodeOutput(t, out).Valid)

	strict, _ := newTestTransformer(t, true, nil)
	out, err = strict.Transform(context.Background(), makeRawEvent("k", text))
	require.NoError(t, err)
	assert.False(t, decodeOutput(t, out).Valid)
}

func TestReportTransformer_NilReport(t *testing.T) {
	tfm, metrics := newTestTransformer(t, false, nil)

	out, err := tfm.Transform(context.Background(), makeRawEvent("k", "METAR RCQC 301730Z NIL="))
	require.NoError(t, err)

	r := decodeOutput(t, out)
	assert.True(t, r.Valid)
	assert.True(t, r.NoObservation)
	assert.Nil(t, r.Observation)
	assert.Equal(t, "RCQC", r.Station)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NilReports), 0)
}

func TestReportTransformer_WithoutValidator(t *testing.T) {
	lex := metar.NewLexicon(metar.DefaultMaxTokens)
	tfm := pipeline.NewTransformer(lex, nil, nil, newTestMetrics(), discardLogger())

	out, err := tfm.Transform(context.Background(), makeRawEvent("k", testReport))
	require.NoError(t, err)

	r := decodeOutput(t, out)
	assert.True(t, r.Valid)
	assert.Nil(t, r.Verdict)
	assert.NotNil(t, r.Observation)

	// Without the validator a report the decoder cannot read is an error.
	_, err = tfm.Transform(context.Background(), makeRawEvent("k", "METAR ZBAA 321400Z 01002MPS CAVOK 14/12 Q1009="))
	assert.Error(t, err)
}

func TestReportTransformer_StationEnrichment(t *testing.T) {
	locator := &mockLocator{loc: domain.StationLocation{Lat: 40.0799, Lon: 116.6031, Name: "Beijing Capital International Airport"}}
	tfm, _ := newTestTransformer(t, false, locator)

	out, err := tfm.Transform(context.Background(), makeRawEvent("k", testReport))
	require.NoError(t, err)

	r := decodeOutput(t, out)
	assert.Equal(t, domain.LocationGeocoded, r.LocationSource)
	require.NotNil(t, r.Location)
	assert.InDelta(t, 116.6031, r.Location.Lon, 1e-9)
}

func TestReportTransformer_ParseError(t *testing.T) {
	tfm, _ := newTestTransformer(t, false, nil)

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("{not json")})
	assert.Error(t, err)

	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("   ")})
	assert.ErrorIs(t, err, domain.ErrEmptyPayload)
}

func TestReportTransformer_ProcessedAtUsesClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	raw := makeRawEvent("k", testReport)
	raw.Timestamp = time.Time{}

	tfm, _ := newTestTransformer(t, false, nil)
	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "2024-04-01T06:00:00Z", out.Headers["processed_at"])
	r := decodeOutput(t, out)
	assert.Equal(t, time.March, r.Observation.Time.Month(), "day 31 received on April 1st belongs to March")
}

// --- helpers ---

func makeRawEvent(key, text string) domain.RawEvent {
	return domain.RawEvent{
		Key:       []byte(key),
		Value:     []byte(text),
		Timestamp: testReceived,
	}
}
