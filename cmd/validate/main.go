// Command validate checks a published risk-zone snapshot for integrity:
// closed polygon rings, scores in range, classifications and radii that
// agree with the scoring rules, and, given the reading fixture, that every
// reading produced the zone the rule pipeline would build for it.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -snapshot data/processed/processed_risk_zones.json \
//	  -readings data/mock/hazard_readings.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/hazard-engine/internal/adapter/geojson"
	"github.com/couchcryptid/hazard-engine/internal/domain"
)

// radiusTolerance bounds how far a ring vertex may sit from the zone radius.
const radiusTolerance = 0.02

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
	snapshotPath := flag.String("snapshot", "", "path to a published GeoJSON snapshot")
	readingsPath := flag.String("readings", "", "optional reading fixture the snapshot was built from")
	flag.Parse()

	if *snapshotPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*snapshotPath, *readingsPath); code != 0 {
		os.Exit(code)
	}
}

func run(snapshotPath, readingsPath string) int {
	fmt.Println("=== Risk Zone Integrity Validation ===")
	fmt.Println()

	snap, err := geojson.Load(snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load snapshot: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateGeometry(snap),
		validateScoring(snap),
	}

	if readingsPath != "" {
		readings, err := loadReadings(readingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load readings: %v\n", err)
			return 1
		}
		phases = append(phases, validateReadingParity(snap, readings))
	}

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
	fmt.Printf("Snapshot %s: %d zones generated %s\n", snap.ID, len(snap.Zones), snap.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))

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

func loadReadings(path string) ([]domain.RawReading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var readings []domain.RawReading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return readings, nil
}

// validateGeometry checks each ring is closed and traces the zone radius.
func validateGeometry(snap domain.Snapshot) *phase {
	p := &phase{name: "Polygon geometry"}
	seen := make(map[string]bool, len(snap.Zones))
	for _, z := range snap.Zones {
		if z.ID == "" {
			p.errorf("zone %q has no id", z.Name)
		} else if seen[z.ID] {
			p.errorf("duplicate zone id %s", z.ID)
		}
		seen[z.ID] = true

		if math.Abs(z.Center.Lat) > 90 || math.Abs(z.Center.Lon) > 180 {
			p.errorf("%s: center (%g, %g) out of range", z.ID, z.Center.Lat, z.Center.Lon)
		}

		ring := z.Polygon
		if len(ring) < 4 {
			p.errorf("%s: ring has %d vertices, need at least 4", z.ID, len(ring))
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			p.errorf("%s: ring is not closed: first %v, last %v", z.ID, ring[0], ring[len(ring)-1])
		}

		want := float64(z.Radius) / 1000
		for i, v := range ring {
			got := domain.HaversineKm(z.Center.Lat, z.Center.Lon, v[1], v[0])
			if math.Abs(got-want) > want*radiusTolerance {
				p.errorf("%s: vertex %d is %.3f km from center, radius is %.3f km", z.ID, i, got, want)
				break
			}
		}
	}
	return p
}

// validateScoring checks score range, tier, color, and radius per zone.
func validateScoring(snap domain.Snapshot) *phase {
	p := &phase{name: "Scoring and classification"}
	for _, z := range snap.Zones {
		if z.SafetyScore < 0 || z.SafetyScore > 100 {
			p.errorf("%s: safety score %d outside 0..100", z.ID, z.SafetyScore)
		}
		if want := domain.Classify(z.SafetyScore); z.Classification != want {
			p.errorf("%s: score %d classified %+v, want %+v", z.ID, z.SafetyScore, z.Classification, want)
		}
		if want := domain.RadiusMeters(z.Hazard, domain.RadiusIntensity(z.RiskLevel)); z.Radius != want {
			p.errorf("%s: radius %d for %s/%s, want %d", z.ID, z.Radius, z.Hazard, z.RiskLevel, want)
		}
		if want := domain.RiskLevelFor(z.Hazard, z.Labels); z.RiskLevel != want {
			p.errorf("%s: risk level %q, want %q", z.ID, z.RiskLevel, want)
		}
		if z.Intensity < 0 || z.Intensity > 1 {
			p.errorf("%s: intensity %g outside 0..1", z.ID, z.Intensity)
		}
	}
	return p
}

// validateReadingParity rebuilds each reading's labels and rule hazard and
// compares them against its zone.
func validateReadingParity(snap domain.Snapshot, readings []domain.RawReading) *phase {
	p := &phase{name: "Reading to zone parity"}
	zones := make(map[string]domain.RiskZone, len(snap.Zones))
	for _, z := range snap.Zones {
		zones[z.ID] = z
	}

	for _, raw := range readings {
		z, ok := zones[raw.ID]
		if !ok {
			p.errorf("reading %s has no zone", raw.ID)
			continue
		}
		r := domain.Normalize(raw)
		labels := domain.LabelReading(r)
		if z.Labels != labels {
			p.errorf("%s: labels %+v, want %+v", raw.ID, z.Labels, labels)
		}
		if rule := domain.Resolve(labels); z.RuleHazard != rule {
			p.errorf("%s: rule hazard %s, want %s", raw.ID, z.RuleHazard, rule)
		}
		if z.Center.Lat != r.Lat || z.Center.Lon != r.Lon {
			p.errorf("%s: center (%g, %g), reading at (%g, %g)", raw.ID, z.Center.Lat, z.Center.Lon, r.Lat, r.Lon)
		}
	}
	if len(readings) != len(snap.Zones) {
		p.errorf("%d readings but %d zones", len(readings), len(snap.Zones))
	}
	return p
}
