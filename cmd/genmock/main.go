// Command genmock runs report text files through the real transformer and
// writes the decoded output as a JSON fixture. It uses the actual pipeline
// package so the fixture matches what the service publishes.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -in data/mock/reports_valid.txt,data/mock/reports_invalid.txt \
//	  -out data/mock/decoded_reports.json
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"github.com/couchcryptid/metar-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// Fixed times so IDs and timestamps in the fixture are reproducible.
var (
	receivedAt  = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	processedAt = time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC)
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "data/mock/reports_valid.txt,data/mock/reports_invalid.txt", "comma-separated report text files")
	out := flag.String("out", "data/mock/decoded_reports.json", "output path for the decoded JSON fixture")
	strict := flag.Bool("strict", false, "reject reports carrying remarks")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	lex := metar.NewLexicon(metar.DefaultMaxTokens)
	transformer := pipeline.NewTransformer(
		lex,
		metar.NewValidator(lex, metar.ValidatorOptions{Strict: *strict}),
		nil,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	var decoded []domain.DecodedReport //nolint:prealloc // size depends on file contents
	for _, path := range strings.Split(*in, ",") {
		reports, err := readReports(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for i, text := range reports {
			r, err := decodeReport(transformer, text)
			if err != nil {
				return fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			decoded = append(decoded, r)
		}
		log.Printf("%s: %d reports", path, len(reports))
	}

	if err := writeJSON(*out, decoded); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(decoded)
	return nil
}

func decodeReport(t *pipeline.ReportTransformer, text string) (domain.DecodedReport, error) {
	out, err := t.Transform(context.Background(), domain.RawEvent{Value: []byte(text), Timestamp: receivedAt})
	if err != nil {
		return domain.DecodedReport{}, err
	}
	var r domain.DecodedReport
	if err := json.Unmarshal(out.Value, &r); err != nil {
		return domain.DecodedReport{}, err
	}
	return r, nil
}

// readReports returns the non-blank lines of path.
func readReports(path string) ([]string, error) {
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

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(reports []domain.DecodedReport) {
	var valid, nils int
	kinds := map[string]int{}
	rules := map[string]int{}
	for i := range reports {
		r := &reports[i]
		kinds[r.Kind]++
		switch {
		case !r.Valid && r.Verdict != nil:
			rules[r.Verdict.Rule]++
		case r.NoObservation:
			valid++
			nils++
		default:
			valid++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(reports))
	fmt.Printf("Valid: %d (NIL: %d)\n", valid, nils)
	fmt.Printf("Rejected: %d\n", len(reports)-valid)
	printCounts("By kind", kinds)
	printCounts("Rejections by rule", rules)
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Printf("  %-22s %d\n", name, counts[k])
	}
}
