// Command validate checks the report corpora under data/mock against the
// validator and decoder. Every report in the valid file must be accepted and
// decode; every report in the invalid file must be rejected. When a fixture
// produced by genmock is given, the current pipeline output must still match
// it.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -valid data/mock/reports_valid.txt \
//	  -invalid data/mock/reports_invalid.txt \
//	  -fixture data/mock/decoded_reports.json
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"github.com/couchcryptid/metar-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// Fixed times matching genmock for ID reproducibility.
var (
	receivedAt  = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	processedAt = time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC)
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	validPath   string
	invalidPath string
	fixturePath string
	strict      bool
	maxTokens   int
}

func main() {
	var opts options
	flag.StringVar(&opts.validPath, "valid", "data/mock/reports_valid.txt", "reports that must be accepted")
	flag.StringVar(&opts.invalidPath, "invalid", "data/mock/reports_invalid.txt", "reports that must be rejected")
	flag.StringVar(&opts.fixturePath, "fixture", "", "optional decoded JSON fixture produced by genmock")
	flag.BoolVar(&opts.strict, "strict", false, "reject reports carrying remarks")
	flag.IntVar(&opts.maxTokens, "max-tokens", metar.DefaultMaxTokens, "maximum groups per report")
	flag.Parse()

	if opts.validPath == "" && opts.invalidPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	fmt.Println("=== METAR Corpus Validation ===")
	fmt.Println()

	valid, err := loadReports(opts.validPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load valid reports: %v\n", err)
		return 1
	}
	invalid, err := loadReports(opts.invalidPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load invalid reports: %v\n", err)
		return 1
	}

	lex := metar.NewLexicon(opts.maxTokens)
	validator := metar.NewValidator(lex, metar.ValidatorOptions{Strict: opts.strict})
	rules := map[string]int{}

	phases := []*phase{
		validateAccepted(validator, valid),
		validateRejected(validator, invalid, rules),
		validateDecoding(lex, valid),
	}
	if opts.fixturePath != "" {
		phases = append(phases, validateFixture(lex, validator, opts.fixturePath, append(valid, invalid...)))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Reports: %d valid, %d invalid\n", len(valid), len(invalid))
	printRules(rules)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadReports returns the non-blank lines of path. An empty path yields no
// reports.
func loadReports(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reports []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			reports = append(reports, line)
		}
	}
	return reports, scanner.Err()
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Accepted ──

func validateAccepted(v *metar.Validator, reports []string) *phase {
	p := &phase{name: "Phase 1: Valid reports accepted"}
	for i, text := range reports {
		if err := v.Validate(text); err != nil {
			verdict := metar.NewVerdict(err)
			p.errorf("line %d: rejected by %s: %s (%s)", i+1, verdict.Rule, verdict.Reason, text)
		}
	}
	return p
}

// ── Phase 2: Rejected ──

func validateRejected(v *metar.Validator, reports []string, rules map[string]int) *phase {
	p := &phase{name: "Phase 2: Invalid reports rejected"}
	for i, text := range reports {
		err := v.Validate(text)
		if err == nil {
			p.errorf("line %d: accepted (%s)", i+1, text)
			continue
		}
		var verr *metar.ValidationError
		if !errors.As(err, &verr) {
			p.errorf("line %d: unexpected error type %T", i+1, err)
			continue
		}
		rules[verr.Rule]++

		// Rejection must be stable.
		if again := v.Validate(text); again == nil || again.Error() != err.Error() {
			p.errorf("line %d: validation is not repeatable", i+1)
		}
	}
	return p
}

// ── Phase 3: Decoding ──

func validateDecoding(lex *metar.Lexicon, reports []string) *phase {
	p := &phase{name: "Phase 3: Valid reports decode"}
	dec := metar.NewDecoder(lex)
	for i, text := range reports {
		year, month := domain.ResolvePeriod(lex, text, receivedAt)
		obs, err := dec.Decode(text, year, month)
		switch {
		case errors.Is(err, metar.ErrNoObservation):
			if !strings.Contains(text, "NIL") {
				p.errorf("line %d: no observation without NIL", i+1)
			}
		case err != nil:
			p.errorf("line %d: %v", i+1, err)
		case obs.Station == "":
			p.errorf("line %d: decoded without station", i+1)
		case obs.Time.IsZero():
			p.errorf("line %d: decoded without time", i+1)
		}
	}
	return p
}

// ── Phase 4: Fixture ──
// Re-runs every report through the transformer and compares with the
// committed fixture.

func validateFixture(lex *metar.Lexicon, v *metar.Validator, path string, reports []string) *phase {
	p := &phase{name: "Phase 4: Fixture matches pipeline output"}

	fixture, err := loadJSON[domain.DecodedReport](path)
	if err != nil {
		p.errorf("load fixture: %v", err)
		return p
	}
	if len(fixture) != len(reports) {
		p.errorf("fixture has %d reports, corpus has %d", len(fixture), len(reports))
		return p
	}

	transformer := pipeline.NewTransformer(lex, v, nil,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i, text := range reports {
		out, err := transformer.Transform(context.Background(), domain.RawEvent{Value: []byte(text), Timestamp: receivedAt})
		if err != nil {
			p.errorf("report %d: transform: %v", i, err)
			continue
		}
		var got domain.DecodedReport
		if err := json.Unmarshal(out.Value, &got); err != nil {
			p.errorf("report %d: unmarshal: %v", i, err)
			continue
		}
		if diff := cmp.Diff(fixture[i], got); diff != "" {
			p.errorf("report %d (%s) differs (-fixture +got):\n%s", i, got.ID, diff)
		}
	}
	return p
}

func printRules(rules map[string]int) {
	if len(rules) == 0 {
		return
	}
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("Rejections by rule:")
	for _, k := range keys {
		fmt.Printf("  %-22s %d\n", k, rules[k])
	}
}
