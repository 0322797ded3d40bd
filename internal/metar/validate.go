package metar

import (
	"fmt"
	"strings"
)

// ValidatorOptions tunes a Validator.
type ValidatorOptions struct {
	// Strict rejects any report carrying an RMK section.
	Strict bool
}

// Validator checks reports against the report grammar without decoding
// them. It is safe for concurrent use.
type Validator struct {
	lex    *Lexicon
	opts   ValidatorOptions
	guards []guard
}

// guard is one step of the validation cascade. It returns a non-nil
// *ValidationError to reject the report, or nil to continue. A guard may
// set checkContext.accepted to end the cascade early.
type guard func(c *checkContext) *ValidationError

// checkContext is the tokenized view shared by the guards.
type checkContext struct {
	lex    *Lexicon
	strict bool
	raw    string
	text   string

	seg     Segments
	tokens  []string
	main    []string // header, body and trend
	obs     []string // header and body
	trend   []string
	remarks []string

	// cursor indexes obs just past the header and wind groups.
	cursor   int
	accepted bool
}

func (c *checkContext) at(i int) string {
	if i >= 0 && i < len(c.obs) {
		return c.obs[i]
	}
	return ""
}

func reject(rule, tok, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Token: tok, Reason: fmt.Sprintf(format, args...)}
}

// NewValidator returns a Validator using the grammar in lex.
func NewValidator(lex *Lexicon, opts ValidatorOptions) *Validator {
	return &Validator{
		lex:  lex,
		opts: opts,
		guards: []guard{
			checkText,
			checkLineBreaks,
			segmentReport,
			checkRemarksMarker,
			checkRemarks,
			checkCharacters,
			checkTrendSpelling,
			checkPlaceholders,
			checkLength,
			checkHeader,
			checkWind,
			checkPressure,
			checkEnding,
			checkIsolated,
			checkBodyGroups,
			checkTrend,
		},
	}
}

// Strict reports whether the Validator rejects remarks sections.
func (v *Validator) Strict() bool { return v.opts.Strict }

// Validate returns nil when text is a well-formed report and otherwise a
// *ValidationError describing the first rule it breaks.
func (v *Validator) Validate(text string) error {
	c := &checkContext{lex: v.lex, strict: v.opts.Strict, raw: text}
	for _, g := range v.guards {
		if verr := g(c); verr != nil {
			return verr
		}
		if c.accepted {
			return nil
		}
	}
	return nil
}

func segmentReport(c *checkContext) *ValidationError {
	c.tokens = tokenize(c.text)
	c.seg = c.lex.Segment(c.text)
	c.obs = c.seg.observation()
	c.trend = c.seg.trend
	c.remarks = c.seg.remarks
	c.main = append(append([]string(nil), c.obs...), c.trend...)
	return nil
}

func joinTokens(toks []string) string { return strings.Join(toks, " ") }
