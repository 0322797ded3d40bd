package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/couchcryptid/metar-etl/internal/observability"
)

// ReportTransformer implements Transformer by validating and decoding the
// report carried by each message, with optional station enrichment.
type ReportTransformer struct {
	lex       *metar.Lexicon
	validator *metar.Validator
	decoder   *metar.Decoder
	locator   domain.StationLocator
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewTransformer creates a ReportTransformer. A nil validator skips
// validation and a nil locator disables station enrichment.
func NewTransformer(lex *metar.Lexicon, validator *metar.Validator, locator domain.StationLocator, metrics *observability.Metrics, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		lex:       lex,
		validator: validator,
		decoder:   metar.NewDecoder(lex),
		locator:   locator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Transform turns one source message into a decoded report. Reports the
// validator rejects are still published, with Valid false and the verdict
// attached. Only unreadable messages and decode failures return an error.
func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	report, err := domain.ParseRawEvent(raw, t.lex)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	out := domain.NewDecodedReport(t.lex, report)

	if t.validator != nil {
		verdict := metar.NewVerdict(t.validator.Validate(report.Text))
		out.Verdict = &verdict
		if !verdict.Accepted {
			t.metrics.ValidationRejections.WithLabelValues(verdict.Rule).Inc()
			t.logger.Debug("report rejected",
				"report_id", out.ID,
				"rule", verdict.Rule,
				"reason", verdict.Reason,
			)
			return domain.SerializeDecodedReport(out)
		}
	}

	obs, err := t.decoder.Decode(report.Text, report.Year, report.Month)
	switch {
	case errors.Is(err, metar.ErrNoObservation):
		out.NoObservation = true
		t.metrics.NilReports.Inc()
	case err != nil:
		return domain.OutputEvent{}, fmt.Errorf("decode report %s: %w", out.ID, err)
	default:
		out.Observation = obs
	}

	out.Valid = true
	out = domain.EnrichWithStation(ctx, out, t.locator, t.logger)
	return domain.SerializeDecodedReport(out)
}
