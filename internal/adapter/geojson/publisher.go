// Package geojson publishes risk-zone snapshots as a GeoJSON
// FeatureCollection file and an optional KML rendering of the same zones.
package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hazard-engine/internal/domain"
)

// Publisher writes snapshots atomically: readers of the output file see
// either the previous snapshot or the new one, never a partial write.
type Publisher struct {
	path    string
	kmlPath string
	logger  *slog.Logger
}

// NewPublisher creates a publisher for path. An empty kmlPath disables the
// KML rendering.
func NewPublisher(path, kmlPath string, logger *slog.Logger) *Publisher {
	return &Publisher{path: path, kmlPath: kmlPath, logger: logger}
}

// Publish replaces the GeoJSON file with snap. The KML file is secondary:
// its failure is logged and does not fail the publish.
func (p *Publisher) Publish(_ context.Context, snap domain.Snapshot) error {
	if err := writeAtomic(p.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.FeatureCollection())
	}); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.ID, err)
	}

	if p.kmlPath != "" {
		if err := writeAtomic(p.kmlPath, func(w io.Writer) error { return WriteKML(w, snap) }); err != nil {
			p.logger.Warn("kml export failed", "error", err, "path", p.kmlPath, "snapshot_id", snap.ID)
		}
	}
	return nil
}

// Load reads a previously published snapshot. A missing file is reported
// with an error wrapping os.ErrNotExist.
func Load(path string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer f.Close()

	var fc domain.FeatureCollection
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: unexpected type %q", path, fc.Type)
	}
	return fc.Snapshot(), nil
}

// writeAtomic writes to a temp file beside path and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// IsNotExist reports whether err means no snapshot has been published yet.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
