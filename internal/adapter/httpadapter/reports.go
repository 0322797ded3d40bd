package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// maxRequestBytes bounds request bodies; a single report is a few hundred bytes.
const maxRequestBytes = 64 << 10

type validateRequest struct {
	Report string `json:"report"`
	Strict bool   `json:"strict"`
}

type decodeRequest struct {
	Report string `json:"report"`
	Year   int    `json:"year,omitempty"`
	Month  int    `json:"month,omitempty"`
}

type decodeResponse struct {
	NoObservation bool               `json:"no_observation,omitempty"`
	Observation   *metar.Observation `json:"observation,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Token string `json:"token,omitempty"`
}

// ReportHandler serves on-demand validation and decoding of single reports.
type ReportHandler struct {
	lex     *metar.Lexicon
	lenient *metar.Validator
	strict  *metar.Validator
	decoder *metar.Decoder
	logger  *slog.Logger
}

// NewReportHandler builds both validator modes over lex so each request can
// pick one.
func NewReportHandler(lex *metar.Lexicon, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		lex:     lex,
		lenient: metar.NewValidator(lex, metar.ValidatorOptions{}),
		strict:  metar.NewValidator(lex, metar.ValidatorOptions{Strict: true}),
		decoder: metar.NewDecoder(lex),
		logger:  logger,
	}
}

// Validate handles POST /v1/validate. A rejected report is still a 200; the
// verdict carries the rule.
func (h *ReportHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !readJSON(w, r, &req) {
		return
	}

	v := h.lenient
	if req.Strict {
		v = h.strict
	}
	verdict := metar.NewVerdict(v.Validate(req.Report))
	if !verdict.Accepted {
		h.logger.Debug("report rejected", "rule", verdict.Rule, "reason", verdict.Reason)
	}
	sharedobs.WriteJSON(w, http.StatusOK, verdict)
}

// Decode handles POST /v1/decode. Without year and month the period is
// resolved against the current time.
func (h *ReportHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if !readJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Report)

	year, month := req.Year, time.Month(req.Month)
	if month < 0 || month > time.December {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be between 1 and 12"})
		return
	}
	if year == 0 || month == 0 {
		year, month = domain.ResolvePeriod(h.lex, text, time.Time{})
	}

	obs, err := h.decoder.Decode(text, year, month)
	if errors.Is(err, metar.ErrNoObservation) {
		sharedobs.WriteJSON(w, http.StatusOK, decodeResponse{NoObservation: true})
		return
	}
	var derr *metar.DecodeError
	if errors.As(err, &derr) {
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: derr.Error(),
			Field: string(derr.Field),
			Token: derr.Token,
		})
		return
	}
	if err != nil {
		h.logger.Error("decode failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, decodeResponse{Observation: obs})
}

// readJSON decodes the request body into v, writing a 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
