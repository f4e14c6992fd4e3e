// Command validate runs the accident core over a CSV file and checks the
// integrity properties every run must satisfy: the schema resolves, cleaning
// only removes incomplete rows, metrics are consistent, and each projection
// matches the enriched dataset.
//
// Usage:
//
//	go run ./cmd/validate -input data/cat_acidentes.csv -delimiter ';' -top 5
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

const pctTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "path to the accident CSV file")
	delimiter := flag.String("delimiter", ";", "single-character field delimiter")
	top := flag.Int("top", domain.DefaultTopN, "number of top incidents to select")
	flag.Parse()

	if *input == "" || utf8.RuneCountInString(*delimiter) != 1 || *top < 0 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open input: %v\n", err)
		os.Exit(1)
	}

	schema := domain.DefaultSchema()
	schema.Delimiter, _ = utf8.DecodeRuneInString(*delimiter)

	code := run(f, schema, *top, os.Stdout)
	f.Close() //nolint:errcheck // read-only file
	os.Exit(code)
}

func run(r io.Reader, schema domain.Schema, topN int, out io.Writer) int {
	fmt.Fprintln(out, "=== Accident Data Integrity Validation ===")
	fmt.Fprintln(out)

	raws, err := domain.LoadRecords(r, schema)
	if err != nil {
		fmt.Fprintf(out, "  %-42s \033[31mFAIL\033[0m\n\n  %v\n", "Phase 1: Load (schema)", err)
		return 1
	}

	valid := domain.ValidateRecords(raws, nil)
	ds := domain.EnrichRecords(valid)
	a := domain.BuildArtifacts(ds, len(raws), topN, domain.DefaultHeatLayerOptions())

	phases := []*phase{
		{name: "Phase 1: Load (schema)"},
		validateCleaning(raws, valid),
		validateMetrics(ds),
		validateProjections(ds, a, topN),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d read, %d dropped, %d enriched; top %d selected\n",
		a.Summary.RowsRead, a.Summary.RowsDropped, a.Summary.RecordsEnriched, len(a.TopIncidents))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 2: Validation ──
// Kept rows are an order-preserving subsequence of the input, and a row is
// kept exactly when it parses.

func validateCleaning(raws []domain.RawRecord, valid []domain.AccidentRecord) *phase {
	p := &phase{name: "Phase 2: Validation (subsequence, predicate)"}

	if len(valid) > len(raws) {
		p.errorf("cleaning produced %d records from %d rows", len(valid), len(raws))
		return p
	}

	j := 0
	for _, raw := range raws {
		rec, err := domain.ParseRecord(raw)
		if err != nil {
			continue
		}
		if j >= len(valid) {
			p.errorf("line %d: complete row missing from cleaned output", raw.Line)
			continue
		}
		if valid[j] != rec {
			p.errorf("line %d: cleaned record %d out of order or altered: got %+v, want %+v", raw.Line, j, valid[j], rec)
		}
		j++
	}
	if j != len(valid) {
		p.errorf("cleaned output has %d records, %d rows are complete", len(valid), j)
	}
	return p
}

// ── Phase 3: Metrics ──

func validateMetrics(ds []domain.EnrichedRecord) *phase {
	p := &phase{name: "Phase 3: Metrics (intensity, shares)"}

	for i, rec := range ds {
		if rec.Intensity != rec.Injured+rec.Deaths {
			p.errorf("record %d (%s): intensity %d != injured %d + deaths %d", i, rec.ID, rec.Intensity, rec.Injured, rec.Deaths)
		}
		if rec.Intensity == 0 {
			if rec.PctInjured != 0 || rec.PctDeaths != 0 {
				p.errorf("record %d (%s): zero intensity with shares %g/%g", i, rec.ID, rec.PctInjured, rec.PctDeaths)
			}
		} else if math.Abs(rec.PctInjured+rec.PctDeaths-100) > pctTolerance {
			p.errorf("record %d (%s): shares sum to %g", i, rec.ID, rec.PctInjured+rec.PctDeaths)
		}
		if again := domain.ComputeMetrics(rec.AccidentRecord); again != rec {
			p.errorf("record %d (%s): metrics not reproducible", i, rec.ID)
		}
	}
	return p
}

// ── Phase 4: Projections ──

func validateProjections(ds []domain.EnrichedRecord, a domain.Artifacts, topN int) *phase {
	p := &phase{name: "Phase 4: Projections (top-N, heat, chart)"}

	if want := min(topN, len(ds)); len(a.TopIncidents) != want {
		p.errorf("top-N: expected %d incidents, got %d", want, len(a.TopIncidents))
	}

	position := make(map[domain.EnrichedRecord]int, len(ds))
	for i := len(ds) - 1; i >= 0; i-- {
		position[ds[i]] = i
	}
	for i, inc := range a.TopIncidents {
		if inc.Rank != i+1 {
			p.errorf("top-N %d: rank %d", i, inc.Rank)
		}
		if i == 0 {
			continue
		}
		prev := a.TopIncidents[i-1].Record
		if prev.Intensity < inc.Record.Intensity {
			p.errorf("top-N %d: intensity %d follows %d", i, inc.Record.Intensity, prev.Intensity)
		}
		if prev.Intensity == inc.Record.Intensity && position[prev] > position[inc.Record] {
			p.errorf("top-N %d: tie between %q and %q not in dataset order", i, prev.ID, inc.Record.ID)
		}
	}
	if len(a.TopIncidents) > 0 && len(a.TopIncidents) < len(ds) {
		last := a.TopIncidents[len(a.TopIncidents)-1].Record.Intensity
		for _, rec := range ds {
			if rec.Intensity > last && !containsRecord(a.TopIncidents, rec) {
				p.errorf("top-N: record %q with intensity %d excluded", rec.ID, rec.Intensity)
			}
		}
	}

	if len(a.Heat.Points) != len(ds) {
		p.errorf("heat: %d points for %d records", len(a.Heat.Points), len(ds))
	} else {
		for i, pt := range a.Heat.Points {
			rec := ds[i]
			if pt.Lat != rec.Latitude || pt.Lon != rec.Longitude || pt.Weight != float64(rec.Intensity) {
				p.errorf("heat point %d does not match record %q", i, rec.ID)
			}
		}
	}

	if len(a.Chart.Rows) != len(ds) {
		p.errorf("chart: %d rows for %d records", len(a.Chart.Rows), len(ds))
	} else {
		for i, row := range a.Chart.Rows {
			rec := ds[i]
			if row.ID != rec.ID || row.Intensity != rec.Intensity || row.PctInjured != rec.PctInjured {
				p.errorf("chart row %d does not match record %q", i, rec.ID)
			}
		}
	}
	return p
}

func containsRecord(incidents []domain.RankedIncident, rec domain.EnrichedRecord) bool {
	for _, inc := range incidents {
		if inc.Record == rec {
			return true
		}
	}
	return false
}
