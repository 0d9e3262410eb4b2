// Command genobs generates synthetic correction-request fixtures and their
// expected correction records for the test suites. Requests mix registered
// station pairs with inline coordinates, spread across the year, and measured
// delays carry gaussian noise from a seeded source so reruns reproduce the
// same fixtures. Expected outputs come from the actual model packages, so
// fixtures always match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genobs \
//	  -seed-file data/seeds/stations.json \
//	  -requests-out data/mock/correction_requests_generated.json \
//	  -corrections-out data/mock/corrections_generated.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/satreflabs/tropo-correction-service/internal/adapter/registry"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// requestFixture is the wire form written to the requests file. It mirrors
// what the request topic carries, one object per message payload.
type requestFixture struct {
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

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	seedFile := flag.String("seed-file", "data/seeds/stations.json", "station seed file for registered-station requests")
	requestsOut := flag.String("requests-out", "", "output path for the request fixture")
	correctionsOut := flag.String("corrections-out", "", "output path for the expected corrections fixture")
	count := flag.Int("count", 24, "number of requests to generate, spread across the year")
	seed := flag.Uint64("seed", 42, "random seed for the noise source")
	flag.Parse()

	if *requestsOut == "" || *correctionsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -requests-out, -corrections-out")
	}

	reg, err := registry.LoadStaticRegistry(*seedFile)
	if err != nil {
		return fmt.Errorf("loading station seed: %w", err)
	}
	stations, err := reg.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing stations: %w", err)
	}

	// Fix the clock so ProcessedAt stamps are reproducible across runs.
	tropo.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 30, 6, 0, 0, 0, time.UTC),
	))
	defer tropo.SetClock(nil)

	requests, corrections, err := generate(stations, reg, *count, *seed)
	if err != nil {
		return err
	}

	if err := writeJSON(*requestsOut, requests); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s", *requestsOut)

	if err := writeJSON(*correctionsOut, corrections); err != nil {
		return fmt.Errorf("writing corrections fixture: %w", err)
	}
	log.Printf("wrote corrections fixture: %s", *correctionsOut)

	printStats(requests, corrections)
	return nil
}

func generate(stations []tropo.Station, reg tropo.StationResolver, count int, seed uint64) ([]requestFixture, []tropo.Correction, error) {
	if len(stations) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 stations, seed file has %d", len(stations))
	}

	src := rand.NewSource(seed)
	zhdDist := distuv.Normal{Mu: 2295, Sigma: 35, Src: src}
	zwdDist := distuv.Normal{Mu: 310, Sigma: 55, Src: src}
	latDist := distuv.Normal{Mu: 22.35, Sigma: 0.12, Src: src}
	lonDist := distuv.Normal{Mu: 114.15, Sigma: 0.18, Src: src}
	hgtDist := distuv.Normal{Mu: 120, Sigma: 160, Src: src}

	randomCoord := func() *tropo.Coordinate {
		return &tropo.Coordinate{
			Lat:    round4(clamp(latDist.Rand(), tropo.RegionLatMin, tropo.RegionLatMax)),
			Lon:    round4(clamp(lonDist.Rand(), tropo.RegionLonMin, tropo.RegionLonMax)),
			Height: round1(clamp(hgtDist.Rand(), 2, 950)),
		}
	}

	requests := make([]requestFixture, 0, count)
	corrections := make([]tropo.Correction, 0, count)

	for i := 0; i < count; i++ {
		// Epochs spread evenly over the year so the seasonal harmonics get
		// sampled away from their annual means. Noon keeps the epoch's UTC
		// calendar day unambiguous.
		doy := 1 + i*365/count
		epoch := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)

		zhd := round1(zhdDist.Rand())
		zwd := round1(zwdDist.Rand())
		fx := requestFixture{
			ZHD:      zhd,
			ZWD:      zwd,
			ZTD:      round1(zhd + zwd),
			Epoch:    epoch.Format(time.RFC3339),
			Seasonal: i%4 != 3,
		}

		// Every third request carries inline coordinates instead of IDs.
		if i%3 == 2 {
			fx.Base = randomCoord()
			fx.Rover = randomCoord()
		} else {
			fx.BaseStation = stations[i%len(stations)].ID
			fx.RoverStation = stations[(i+5)%len(stations)].ID
		}

		cor, err := process(fx, reg, epoch)
		if err != nil {
			return nil, nil, fmt.Errorf("request %d: %w", i, err)
		}

		requests = append(requests, fx)
		corrections = append(corrections, cor)
	}

	return requests, corrections, nil
}

// process runs one fixture through the same parse, resolve, and build steps
// the pipeline transformer uses.
func process(fx requestFixture, reg tropo.StationResolver, epoch time.Time) (tropo.Correction, error) {
	rawJSON, err := json.Marshal(fx)
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("marshal request: %w", err)
	}

	raw := tropo.RawRequest{
		Value:     rawJSON,
		Timestamp: epoch,
	}

	req, err := tropo.ParseRequest(raw)
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("parse request: %w", err)
	}

	base, rover, err := tropo.ResolveEndpoints(context.Background(), req, reg)
	if err != nil {
		return tropo.Correction{}, fmt.Errorf("resolve endpoints: %w", err)
	}

	return tropo.BuildCorrection(req, base, rover, true)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
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

func printStats(requests []requestFixture, corrections []tropo.Correction) {
	var stationPairs, inlinePairs, seasonal int
	for i := range requests {
		if requests[i].BaseStation != "" {
			stationPairs++
		} else {
			inlinePairs++
		}
		if requests[i].Seasonal {
			seasonal++
		}
	}

	var ascending, descending, level int
	var maxDiff float64
	minDoy, maxDoy := 367, 0
	minZTD := math.Inf(1)
	maxZTD := math.Inf(-1)
	for i := range corrections {
		c := &corrections[i]
		switch {
		case c.HeightDiff > 0:
			ascending++
		case c.HeightDiff < 0:
			descending++
		default:
			level++
		}
		if math.Abs(c.HeightDiff) > math.Abs(maxDiff) {
			maxDiff = c.HeightDiff
		}
		if c.DayOfYear < minDoy {
			minDoy = c.DayOfYear
		}
		if c.DayOfYear > maxDoy {
			maxDoy = c.DayOfYear
		}
		minZTD = math.Min(minZTD, c.Corrected.ZTD)
		maxZTD = math.Max(maxZTD, c.Corrected.ZTD)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(corrections))
	fmt.Printf("Station pairs: %d, inline pairs: %d\n", stationPairs, inlinePairs)
	fmt.Printf("Seasonal: %d, annual: %d\n", seasonal, len(requests)-seasonal)
	fmt.Printf("Day of year: %d to %d\n", minDoy, maxDoy)
	fmt.Printf("Height diff: %d ascending, %d descending, %d level, largest %.1f m\n",
		ascending, descending, level, maxDiff)
	fmt.Printf("Corrected ZTD range: %.4f to %.4f mm\n", minZTD, maxZTD)

	if len(corrections) > 0 {
		c := &corrections[0]
		fmt.Printf("\nFirst record:\n")
		fmt.Printf("  ID: %s\n", c.ID)
		fmt.Printf("  Pair: %s (%.1f m) -> %s (%.1f m)\n",
			c.BaseStation, c.Base.Height, c.RoverStation, c.Rover.Height)
		fmt.Printf("  DayOfYear: %d, Seasonal: %t\n", c.DayOfYear, c.Seasonal)
		fmt.Printf("  Betas: ZHD=%.1f, ZTD=%.10f, ZWD=%.10f m\n", c.BetaZHD, c.BetaZTD, c.BetaZWD)
		fmt.Printf("  Measured:  ZHD=%.1f, ZWD=%.1f, ZTD=%.1f mm\n",
			c.Measured.ZHD, c.Measured.ZWD, c.Measured.ZTD)
		fmt.Printf("  Corrected: ZHD=%.10f, ZWD=%.10f, ZTD=%.10f mm\n",
			c.Corrected.ZHD, c.Corrected.ZWD, c.Corrected.ZTD)
		fmt.Printf("  ProcessedAt: %s\n", c.ProcessedAt.Format(time.RFC3339))
	}
}
