// Command validate performs end-to-end data integrity checks across the
// correction fixtures: the station seed file, the generated request fixture,
// and the expected corrections fixture. It verifies seed validity, request
// well-formedness, model reproduction, and output invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -seed-file data/seeds/stations.json \
//	  -requests-json data/mock/correction_requests_generated.json \
//	  -corrections-json data/mock/corrections_generated.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/satreflabs/tropo-correction-service/internal/adapter/registry"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// requestRow is the wire form of one request in the fixture file.
type requestRow struct {
	BaseStation  string            `json:"base_station,omitempty"`
	RoverStation string            `json:"rover_station,omitempty"`
	Base         *tropo.Coordinate `json:"base,omitempty"`
	Rover        *tropo.Coordinate `json:"rover,omitempty"`
	ZHD          float64           `json:"zhd_mm"`
	ZWD          float64           `json:"zwd_mm"`
	ZTD          float64           `json:"ztd_mm"`
	Epoch        string            `json:"epoch"`
	Seasonal     bool              `json:"seasonal"`
}

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
	seedFile := flag.String("seed-file", "", "path to the station seed JSON")
	requestsJSON := flag.String("requests-json", "", "path to the request fixture JSON")
	correctionsJSON := flag.String("corrections-json", "", "path to the expected corrections JSON")
	flag.Parse()

	if *seedFile == "" || *requestsJSON == "" || *correctionsJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*seedFile, *requestsJSON, *correctionsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(seedPath, requestsPath, correctionsPath string) int {
	// Set a fixed clock matching genobs so ProcessedAt stamps reproduce.
	tropo.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 30, 6, 0, 0, 0, time.UTC),
	))
	defer tropo.SetClock(nil)

	fmt.Println("=== Correction Fixture Integrity Validation ===")
	fmt.Println()

	stations, err := loadJSON[tropo.Station](seedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load station seed: %v\n", err)
		return 1
	}

	requests, err := loadJSON[requestRow](requestsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load request fixture: %v\n", err)
		return 1
	}

	corrections, err := loadJSON[tropo.Correction](correctionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load corrections fixture: %v\n", err)
		return 1
	}

	reg := registry.NewStaticRegistry(stations)

	phases := []*phase{
		validateSeed(stations),
		validateRequests(requests, corrections, reg),
		validateReproduction(requests, corrections, reg),
		validateInvariants(corrections),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d stations, %d requests, %d corrections\n",
		len(stations), len(requests), len(corrections))

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

// ── Phase 1: Station Seed ──
// Validates that every seeded station is usable as a correction endpoint.

func validateSeed(stations []tropo.Station) *phase {
	p := &phase{name: "Phase 1: Station Seed (region and identity)"}

	if len(stations) < 2 {
		p.errorf("seed has %d stations, need at least 2 for a pair", len(stations))
	}

	seen := map[string]int{}
	for i, s := range stations {
		if strings.TrimSpace(s.ID) == "" {
			p.errorf("station %d: empty ID", i)
			continue
		}
		if prev, dup := seen[s.ID]; dup {
			p.errorf("station %d: ID %q already used by station %d", i, s.ID, prev)
		}
		seen[s.ID] = i

		if s.Name == "" {
			p.errorf("station %s: empty name", s.ID)
		}
		if !tropo.InRegion(s.Lat, s.Lon) {
			p.errorf("station %s: (%.4f, %.4f) outside the model region", s.ID, s.Lat, s.Lon)
		}
		if s.Height < 0 || s.Height > 1000 {
			p.errorf("station %s: height %.1f m outside plausible range", s.ID, s.Height)
		}
	}
	return p
}

// ── Phase 2: Request Integrity ──
// Validates request rows against the wire contract and the station seed.

func validateRequests(requests []requestRow, corrections []tropo.Correction, reg tropo.StationResolver) *phase {
	p := &phase{name: "Phase 2: Request Integrity (JSON vs seed)"}

	if len(requests) != len(corrections) {
		p.errorf("count mismatch: %d requests, %d corrections", len(requests), len(corrections))
	}

	ctx := context.Background()
	for i, r := range requests {
		// Measured components must be self-consistent. Each is rounded to
		// 0.1 mm independently, so the total can be off by one step.
		if math.Abs(r.ZHD+r.ZWD-r.ZTD) > 0.15 {
			p.errorf("request %d: ztd %.1f inconsistent with zhd %.1f + zwd %.1f", i, r.ZTD, r.ZHD, r.ZWD)
		}

		if r.Epoch == "" {
			p.errorf("request %d: missing epoch", i)
		} else if _, err := time.Parse(time.RFC3339, r.Epoch); err != nil {
			p.errorf("request %d: bad epoch %q: %v", i, r.Epoch, err)
		}

		for side, id := range map[string]string{"base": r.BaseStation, "rover": r.RoverStation} {
			if id == "" {
				continue
			}
			if _, err := reg.Resolve(ctx, id); err != nil {
				p.errorf("request %d: %s station %q not in seed", i, side, id)
			}
		}
		for side, c := range map[string]*tropo.Coordinate{"base": r.Base, "rover": r.Rover} {
			if c == nil {
				continue
			}
			if !tropo.InRegion(c.Lat, c.Lon) {
				p.errorf("request %d: inline %s (%.4f, %.4f) outside the model region", i, side, c.Lat, c.Lon)
			}
		}

		if r.BaseStation == "" && r.Base == nil {
			p.errorf("request %d: no base station or inline base", i)
		}
		if r.RoverStation == "" && r.Rover == nil {
			p.errorf("request %d: no rover station or inline rover", i)
		}
	}
	return p
}

// ── Phase 3: Model Reproduction ──
// Re-runs every request through the correction model and compares the result
// with the stored corrections fixture, field by field.

func validateReproduction(requests []requestRow, corrections []tropo.Correction, reg tropo.StationResolver) *phase {
	p := &phase{name: "Phase 3: Model Reproduction (recompute vs fixture)"}

	n := min(len(requests), len(corrections))
	for i := 0; i < n; i++ {
		expected, err := recompute(requests[i], reg)
		if err != nil {
			p.errorf("request %d: %v", i, err)
			continue
		}
		compareCorrections(p, i, expected, &corrections[i])
	}
	return p
}

// recompute runs one request row through the same parse, resolve, and build
// steps the pipeline transformer uses.
func recompute(r requestRow, reg tropo.StationResolver) (tropo.Correction, error) {
	rawJSON, err := json.Marshal(r)
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("marshal error: %w", err)
	}

	req, err := tropo.ParseRequest(tropo.RawRequest{Value: rawJSON})
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("parse error: %w", err)
	}

	base, rover, err := tropo.ResolveEndpoints(context.Background(), req, reg)
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("resolve error: %w", err)
	}

	return tropo.BuildCorrection(req, base, rover, true)
}

func compareCorrections(p *phase, i int, expected tropo.Correction, got *tropo.Correction) {
	if got.ID != expected.ID {
		p.errorf("record %d: ID: expected %s, got %s", i, expected.ID, got.ID)
	}
	if got.BaseStation != expected.BaseStation || got.RoverStation != expected.RoverStation {
		p.errorf("record %d: pair: expected %s->%s, got %s->%s", i,
			expected.BaseStation, expected.RoverStation, got.BaseStation, got.RoverStation)
	}
	if got.DayOfYear != expected.DayOfYear {
		p.errorf("record %d: doy: expected %d, got %d", i, expected.DayOfYear, got.DayOfYear)
	}
	if got.Seasonal != expected.Seasonal {
		p.errorf("record %d: seasonal: expected %t, got %t", i, expected.Seasonal, got.Seasonal)
	}
	if !floatEq(got.HeightDiff, expected.HeightDiff) {
		p.errorf("record %d: height diff: expected %g, got %g", i, expected.HeightDiff, got.HeightDiff)
	}
	if !floatEq(got.BetaZHD, expected.BetaZHD) || !floatEq(got.BetaZTD, expected.BetaZTD) || !floatEq(got.BetaZWD, expected.BetaZWD) {
		p.errorf("record %d: betas: expected (%g, %g, %g), got (%g, %g, %g)", i,
			expected.BetaZHD, expected.BetaZTD, expected.BetaZWD, got.BetaZHD, got.BetaZTD, got.BetaZWD)
	}
	if !floatEq(got.Corrected.ZHD, expected.Corrected.ZHD) ||
		!floatEq(got.Corrected.ZWD, expected.Corrected.ZWD) ||
		!floatEq(got.Corrected.ZTD, expected.Corrected.ZTD) {
		p.errorf("record %d: corrected: expected (%.10f, %.10f, %.10f), got (%.10f, %.10f, %.10f)", i,
			expected.Corrected.ZHD, expected.Corrected.ZWD, expected.Corrected.ZTD,
			got.Corrected.ZHD, got.Corrected.ZWD, got.Corrected.ZTD)
	}
	if !got.Epoch.Equal(expected.Epoch) {
		p.errorf("record %d: epoch: expected %s, got %s", i,
			expected.Epoch.Format(time.RFC3339), got.Epoch.Format(time.RFC3339))
	}
	if !got.ProcessedAt.Equal(expected.ProcessedAt) {
		p.errorf("record %d: processed_at: expected %s, got %s", i,
			expected.ProcessedAt.Format(time.RFC3339), got.ProcessedAt.Format(time.RFC3339))
	}
}

// ── Phase 4: Output Invariants ──
// Validates physical and identity invariants on the corrections fixture
// without reference to the requests.

func validateInvariants(corrections []tropo.Correction) *phase {
	p := &phase{name: "Phase 4: Output Invariants (physics and IDs)"}

	seen := map[string]int{}
	var dupeCount int
	for i := range corrections {
		c := &corrections[i]
		checkIdentity(p, i, c, seen, &dupeCount)
		checkPhysics(p, i, c)
	}

	if dupeCount > 0 {
		fmt.Printf("  Note: %d duplicate ID(s) found (identical requests collapse to one record downstream)\n", dupeCount)
	}
	return p
}

func checkIdentity(p *phase, i int, c *tropo.Correction, seen map[string]int, dupeCount *int) {
	if c.ID == "" {
		p.errorf("record %d: missing ID", i)
		return
	}
	// Duplicate IDs are by construction identical requests; they collapse
	// to one record downstream, so they are noted, not failed.
	if _, dup := seen[c.ID]; dup {
		*dupeCount++
	} else {
		seen[c.ID] = i
	}

	wantPrefix := "cor-"
	if c.RoverStation != "" {
		wantPrefix = c.RoverStation + "-"
	}
	if !strings.HasPrefix(c.ID, wantPrefix) {
		p.errorf("record %d: ID %q doesn't start with %q", i, c.ID, wantPrefix)
	}

	if c.ProcessedAt.IsZero() {
		p.errorf("record %d: processed_at is zero", i)
	}
}

func checkPhysics(p *phase, i int, c *tropo.Correction) {
	if !tropo.InRegion(c.Base.Lat, c.Base.Lon) {
		p.errorf("record %d: base (%.4f, %.4f) outside the model region", i, c.Base.Lat, c.Base.Lon)
	}
	if !tropo.InRegion(c.Rover.Lat, c.Rover.Lon) {
		p.errorf("record %d: rover (%.4f, %.4f) outside the model region", i, c.Rover.Lat, c.Rover.Lon)
	}

	if !floatEq(c.BetaZHD, 8431.2) {
		p.errorf("record %d: hydrostatic scale height %g, expected 8431.2", i, c.BetaZHD)
	}
	if c.BetaZTD <= 0 || c.BetaZWD <= 0 {
		p.errorf("record %d: non-positive scale heights (ztd %g, zwd %g)", i, c.BetaZTD, c.BetaZWD)
	}

	if !floatEq(c.HeightDiff, c.Rover.Height-c.Base.Height) {
		p.errorf("record %d: height diff %g doesn't match coordinates (%g - %g)", i,
			c.HeightDiff, c.Rover.Height, c.Base.Height)
	}

	// Delay scales with the rover's height relative to the base in this
	// formulation. Equal heights must pass the measurement through.
	type comp struct {
		name      string
		measured  float64
		corrected float64
	}
	for _, cc := range []comp{
		{"zhd", c.Measured.ZHD, c.Corrected.ZHD},
		{"zwd", c.Measured.ZWD, c.Corrected.ZWD},
		{"ztd", c.Measured.ZTD, c.Corrected.ZTD},
	} {
		switch {
		case c.HeightDiff > 0 && cc.corrected <= cc.measured:
			p.errorf("record %d: %s %.4f did not grow over %.4f despite +%.1f m", i, cc.name, cc.corrected, cc.measured, c.HeightDiff)
		case c.HeightDiff < 0 && cc.corrected >= cc.measured:
			p.errorf("record %d: %s %.4f did not shrink under %.4f despite %.1f m", i, cc.name, cc.corrected, cc.measured, c.HeightDiff)
		case c.HeightDiff == 0 && !floatEq(cc.corrected, cc.measured):
			p.errorf("record %d: %s changed from %.4f to %.4f at equal heights", i, cc.name, cc.measured, cc.corrected)
		}
	}
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
