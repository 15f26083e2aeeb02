// Command validate reads trips and enrichment results back from the store
// and checks the integrity of every pipeline stage: extraction, enrichment,
// merge, cleaning and reporting. It prints PASS or FAIL per phase and exits
// non-zero when any phase fails.
//
// Usage:
//
//	STORE_DSN='root:secret@tcp(localhost:3306)/taxi' go run ./cmd/validate
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/trip-enrichment-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/trip-enrichment-etl/internal/config"
	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
	"github.com/couchcryptid/trip-enrichment-etl/internal/report"
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

func main() {
	cfg, err := config.LoadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(context.Background(), cfg))
}

func run(ctx context.Context, cfg *config.Config) int {
	logger := observability.NewLogger(cfg)

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		Host:     cfg.Store.Host,
		User:     cfg.Store.User,
		Password: cfg.Store.Password,
		Database: cfg.Store.Database,
		PageSize: cfg.Store.PageSize,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer store.Close()

	// ── Load ──
	fmt.Println("=== Trip Enrichment Integrity Validation ===")
	fmt.Println()

	var trips []domain.TripRecord
	for t, err := range store.Trips(ctx, domain.IDRange{}) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load trips: %v\n", err)
			return 1
		}
		trips = append(trips, t)
	}

	var results []domain.EnrichmentResult
	for r, err := range store.Results(ctx) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load results: %v\n", err)
			return 1
		}
		results = append(results, r)
	}

	return validate(os.Stdout, trips, results)
}

// validate runs every phase and prints the outcome. It returns the process
// exit code.
func validate(w io.Writer, trips []domain.TripRecord, results []domain.EnrichmentResult) int {
	merged := domain.Merge(trips, results)
	cleaned, excluded := domain.Clean(merged, domain.DefaultRules()...)
	summary := report.Build(cleaned, report.JFK)

	phases := []*phase{
		validateExtraction(trips),
		validateEnrichment(trips, results),
		validateMerge(trips, results, merged),
		validateCleaning(merged, cleaned, excluded),
		validateReports(cleaned, summary),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d trips, %d results, %d merged, %d cleaned, %d excluded\n",
		len(trips), len(results), len(merged), len(cleaned), len(excluded))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}
