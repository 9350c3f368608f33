// Command genmock reads a collector CSV export and generates the reading
// fixture used by the pipeline tests. With -zones-out it also runs the rule
// pipeline over the readings and writes the resulting snapshot, so fixture
// expectations can be refreshed from real domain behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/hazard_readings.csv \
//	  -out data/mock/hazard_readings.json \
//	  -zones-out data/mock/hazard_zones.geojson
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

// fixtureTime stamps rows without a timestamp and the generated snapshot.
var fixtureTime = time.Date(2026, time.October, 15, 6, 0, 0, 0, time.UTC)

// metaColumns are read into RawReading fields; every other column is a signal.
var metaColumns = map[string]bool{
	"timestamp":   true,
	"location":    true,
	"lat":         true,
	"lon":         true,
	"description": true,
	"population":  true,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "collector CSV export")
	out := flag.String("out", "", "output path for the raw reading fixture")
	zonesOut := flag.String("zones-out", "", "optional output path for the rule-only snapshot")
	population := flag.Int("default-population", 10000, "population for readings without one")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	readings, err := readCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	log.Printf("total: %d readings", len(readings))

	if err := writeJSON(*out, readings); err != nil {
		return fmt.Errorf("writing reading fixture: %w", err)
	}
	log.Printf("wrote reading fixture: %s", *out)

	snap := buildSnapshot(readings, *population)
	if *zonesOut != "" {
		if err := writeJSON(*zonesOut, snap.FeatureCollection()); err != nil {
			return fmt.Errorf("writing zone fixture: %w", err)
		}
		log.Printf("wrote zone fixture: %s", *zonesOut)
	}

	printStats(snap)
	return nil
}

func readCSV(path string) ([]domain.RawReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	readings := make([]domain.RawReading, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < len(header) {
			continue
		}

		r := domain.RawReading{
			ID:          fmt.Sprintf("mock-%02d", n+1),
			Location:    get(row, colIdx, "location"),
			Description: get(row, colIdx, "description"),
			ObservedAt:  domain.Now(),
			Fields:      map[string]any{},
		}
		if r.Lat, err = strconv.ParseFloat(get(row, colIdx, "lat"), 64); err != nil {
			return nil, fmt.Errorf("row %d: lat: %w", n+1, err)
		}
		if r.Lon, err = strconv.ParseFloat(get(row, colIdx, "lon"), 64); err != nil {
			return nil, fmt.Errorf("row %d: lon: %w", n+1, err)
		}
		if ts := get(row, colIdx, "timestamp"); ts != "" {
			if r.ObservedAt, err = time.Parse(time.RFC3339, ts); err != nil {
				return nil, fmt.Errorf("row %d: timestamp: %w", n+1, err)
			}
		}
		if p := get(row, colIdx, "population"); p != "" {
			r.Population, _ = strconv.Atoi(p)
		}

		for _, col := range header {
			col = strings.TrimSpace(col)
			if metaColumns[col] {
				continue
			}
			cell := get(row, colIdx, col)
			if cell == "" {
				continue
			}
			// Unparseable cells stay strings so normalization sees them as
			// the collector sent them.
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				r.Fields[col] = v
			} else {
				r.Fields[col] = cell
			}
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// buildSnapshot runs the rule pipeline with no model loaded.
func buildSnapshot(readings []domain.RawReading, defaultPopulation int) domain.Snapshot {
	snap := domain.Snapshot{ID: "mock-snapshot", GeneratedAt: fixtureTime}
	for _, raw := range readings {
		r := domain.Normalize(raw)
		labels := domain.LabelReading(r)
		snap.Zones = append(snap.Zones, domain.BuildZone(r, labels, domain.Resolve(labels), domain.HazardUnknown, defaultPopulation))
	}
	return snap
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
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

func printStats(snap domain.Snapshot) {
	hazards := map[domain.Hazard]int{}
	classes := map[string]int{}
	for _, z := range snap.Zones {
		hazards[z.Hazard]++
		classes[z.Classification.Level]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Zones: %d\n", len(snap.Zones))
	fmt.Printf("By classification: info=%d, low=%d, medium=%d, high=%d\n",
		classes[domain.ClassInfo.Level], classes[domain.ClassLow.Level],
		classes[domain.ClassMedium.Level], classes[domain.ClassHigh.Level])

	names := make([]string, 0, len(hazards))
	for h := range hazards {
		names = append(names, string(h))
	}
	sort.Strings(names)
	fmt.Print("By hazard:")
	for _, h := range names {
		fmt.Printf(" %s=%d", h, hazards[domain.Hazard(h)])
	}
	fmt.Println()

	fmt.Println("\nPer reading:")
	for _, z := range snap.Zones {
		fmt.Printf("  %s %-10s hazard=%-10s level=%-8s score=%3d radius=%dm\n",
			z.ID, z.Location, z.Hazard, z.RiskLevel, z.SafetyScore, z.Radius)
	}
}
