package geojson

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() domain.Snapshot {
	observed := time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	flood := domain.NormalizedReading{
		ID: "rd-1", Location: "Hue", Lat: 16.4637, Lon: 107.5909, ObservedAt: observed,
		Temperature: 26.4, RiverDischarge: 6200, EQMag: -1, EQDist: -1,
	}
	calm := domain.NormalizedReading{
		ID: "rd-2", Location: "Da Lat", Lat: 11.9404, Lon: 108.4583, ObservedAt: observed,
		Temperature: 18, EQMag: -1, EQDist: -1, RiverDischarge: -1,
	}

	var zones []domain.RiskZone
	for _, r := range []domain.NormalizedReading{flood, calm} {
		labels := domain.LabelReading(r)
		rule := domain.Resolve(labels)
		zones = append(zones, domain.BuildZone(r, labels, rule, domain.HazardUnknown, 10000))
	}
	return domain.Snapshot{ID: "snap-1", GeneratedAt: observed.Add(time.Minute), Zones: zones}
}

func TestPublish_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed", "zones.json")
	p := NewPublisher(path, "", slog.Default())
	snap := testSnapshot()

	require.NoError(t, p.Publish(context.Background(), snap))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestPublish_GeoJSONShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	require.NoError(t, NewPublisher(path, "", slog.Default()).Publish(context.Background(), testSnapshot()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string         `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	f := doc.Features[0]
	assert.Equal(t, "Polygon", f.Geometry.Type)
	ring := f.Geometry.Coordinates[0]
	assert.Len(t, ring, 33)
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring is closed")

	for _, key := range []string{"id", "name", "description", "hazard_type", "risk_level", "safety_score", "radius", "color", "time", "center"} {
		assert.Contains(t, f.Properties, key)
	}
	assert.Equal(t, "Flood", f.Properties["hazard_type"])
	assert.Equal(t, []any{16.4637, 107.5909}, f.Properties["center"])
}

func TestPublish_ReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	p := NewPublisher(path, "", slog.Default())

	first := testSnapshot()
	require.NoError(t, p.Publish(context.Background(), first))

	second := domain.Snapshot{ID: "snap-2", GeneratedAt: first.GeneratedAt.Add(15 * time.Minute)}
	require.NoError(t, p.Publish(context.Background(), second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "snap-2", got.ID)
	assert.Empty(t, got.Zones)
}

func TestPublish_WritesKML(t *testing.T) {
	dir := t.TempDir()
	kmlPath := filepath.Join(dir, "zones.kml")
	p := NewPublisher(filepath.Join(dir, "zones.json"), kmlPath, slog.Default())

	require.NoError(t, p.Publish(context.Background(), testSnapshot()))

	b, err := os.ReadFile(kmlPath)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "<Placemark>")
	assert.Contains(t, out, "<name>[Flood] Hue</name>")
	assert.Contains(t, out, "#zone-low")
	assert.Contains(t, out, "<Polygon>")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestLoad_RejectsOtherDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Feature"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, IsNotExist(err))
}

func TestWriteKML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, domain.Snapshot{ID: "empty"}))
	assert.Contains(t, buf.String(), "Risk zones empty")
	assert.NotContains(t, buf.String(), "<Placemark>")
}

func TestParseHexColor(t *testing.T) {
	c := parseHexColor("#FF8C00")
	assert.Equal(t, uint8(0xFF), c.R)
	assert.Equal(t, uint8(0x8C), c.G)
	assert.Equal(t, uint8(0x00), c.B)
	assert.Equal(t, uint8(0x80), parseHexColor("red").R)
}
