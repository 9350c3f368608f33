package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const notifyTimeout = 10 * time.Second

// ReadingSource is the event store as seen by a processing pass.
type ReadingSource interface {
	RecentReadings(ctx context.Context, since time.Time, limit int) ([]domain.RawReading, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Predictor scores a reading with the hazard model.
type Predictor interface {
	Predict(r domain.NormalizedReading, labels domain.LabelSet) domain.Hazard
}

// Publisher durably writes a snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// SnapshotSink receives each published snapshot and returns its alerts.
type SnapshotSink interface {
	Replace(snap domain.Snapshot) []domain.Alert
}

// Notifier delivers alerts worth pushing to subscribers.
type Notifier interface {
	Notify(ctx context.Context, snapshotID string, alerts []domain.Alert) error
}

// PassConfig bounds the readings a pass considers.
type PassConfig struct {
	Window            time.Duration
	Limit             int
	Retention         time.Duration
	DefaultPopulation int
}

// Processor turns the recent readings into a published risk-zone snapshot.
type Processor struct {
	store     ReadingSource
	predictor Predictor
	publisher Publisher
	sink      SnapshotSink
	notifier  Notifier
	cfg       PassConfig
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewProcessor wires a processing pass. notifier may be nil to disable
// notifications; a nil clock uses the real clock.
func NewProcessor(store ReadingSource, predictor Predictor, publisher Publisher, sink SnapshotSink, notifier Notifier, cfg PassConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Processor{
		store:     store,
		predictor: predictor,
		publisher: publisher,
		sink:      sink,
		notifier:  notifier,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes one pass. A store or publish failure aborts the pass and
// leaves the previous snapshot in place. Notification and pruning failures
// are logged only.
func (p *Processor) Run(ctx context.Context) (domain.Snapshot, error) {
	start := p.clock.Now()
	snap, err := p.run(ctx, start.UTC())
	p.metrics.PassDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.Passes.WithLabelValues("error").Inc()
		return domain.Snapshot{}, err
	}
	p.metrics.Passes.WithLabelValues("success").Inc()
	return snap, nil
}

func (p *Processor) run(ctx context.Context, now time.Time) (domain.Snapshot, error) {
	readings, err := p.store.RecentReadings(ctx, now.Add(-p.cfg.Window), p.cfg.Limit)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read recent readings: %w", err)
	}

	snap := domain.Snapshot{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		Zones:       make([]domain.RiskZone, 0, len(readings)),
	}
	for _, raw := range readings {
		snap.Zones = append(snap.Zones, p.buildZone(raw))
	}

	if err := p.publisher.Publish(ctx, snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("publish: %w", err)
	}
	alerts := p.sink.Replace(snap)
	p.recordZones(snap.Zones)

	p.logger.Info("risk zones published",
		"snapshot_id", snap.ID,
		"readings", len(readings),
		"zones", len(snap.Zones),
		"alerts", len(alerts),
	)

	p.notify(ctx, snap.ID, alerts)
	p.prune(ctx, now)
	return snap, nil
}

func (p *Processor) buildZone(raw domain.RawReading) domain.RiskZone {
	r := domain.Normalize(raw)
	labels := domain.LabelReading(r)
	rule := domain.Resolve(labels)
	predicted := p.predictor.Predict(r, labels)
	if predicted == domain.HazardUnknown {
		p.metrics.PredictorErrors.Inc()
	}
	return domain.BuildZone(r, labels, rule, predicted, p.cfg.DefaultPopulation)
}

func (p *Processor) recordZones(zones []domain.RiskZone) {
	counts := map[string]int{
		domain.ClassInfo.Level:   0,
		domain.ClassLow.Level:    0,
		domain.ClassMedium.Level: 0,
		domain.ClassHigh.Level:   0,
	}
	for _, z := range zones {
		counts[z.Classification.Level]++
	}
	for level, n := range counts {
		p.metrics.ZonesPublished.WithLabelValues(level).Set(float64(n))
	}
}

// notify hands high and medium alerts to the notifier.
func (p *Processor) notify(ctx context.Context, snapshotID string, alerts []domain.Alert) {
	if p.notifier == nil {
		return
	}
	urgent := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Severity == domain.SeverityHigh || a.Severity == domain.SeverityMedium {
			urgent = append(urgent, a)
		}
	}
	if len(urgent) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := p.notifier.Notify(ctx, snapshotID, urgent); err != nil {
		p.logger.Warn("alert notification failed", "error", err, "snapshot_id", snapshotID, "alerts", len(urgent))
		p.metrics.AlertsNotified.WithLabelValues("error").Add(float64(len(urgent)))
		return
	}
	p.metrics.AlertsNotified.WithLabelValues("sent").Add(float64(len(urgent)))
}

func (p *Processor) prune(ctx context.Context, now time.Time) {
	if p.cfg.Retention <= 0 {
		return
	}
	n, err := p.store.Prune(ctx, now.Add(-p.cfg.Retention))
	if err != nil {
		p.logger.Warn("prune readings failed", "error", err)
		return
	}
	if n > 0 {
		p.logger.Info("pruned expired readings", "count", n)
	}
}
