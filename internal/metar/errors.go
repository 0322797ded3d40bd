package metar

import (
	"errors"
	"fmt"
)

// ErrNoObservation is returned by Decode for reports carrying NIL. It marks
// an absent report, not a malformed one.
var ErrNoObservation = errors.New("metar: no observation")

var (
	ErrEmptyReport   = errors.New("empty report")
	ErrTooManyGroups = errors.New("too many groups")
	ErrMissingField  = errors.New("missing mandatory group")
	ErrOutOfRange    = errors.New("value out of range")
)

// DecodeError reports a group that could not be decoded.
type DecodeError struct {
	Field Field
	Token string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("metar: decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("metar: decode %s %q: %v", e.Field, e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError is the first rule a report violated. Rule is a short
// stable identifier suitable for metric labels.
type ValidationError struct {
	Rule   string
	Token  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Verdict is the serializable outcome of a validation.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NewVerdict converts the result of Validate into a Verdict.
func NewVerdict(err error) Verdict {
	if err == nil {
		return Verdict{Accepted: true}
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Verdict{Rule: verr.Rule, Reason: verr.Reason}
	}
	return Verdict{Rule: "internal", Reason: err.Error()}
}
