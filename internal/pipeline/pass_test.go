package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/alerts"
	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/observability"
	"github.com/couchcryptid/hazard-engine/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passNow = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

type fakeReadingStore struct {
	readings []domain.RawReading
	err      error
	since    time.Time
	limit    int
	cutoff   time.Time
}

func (f *fakeReadingStore) RecentReadings(_ context.Context, since time.Time, limit int) ([]domain.RawReading, error) {
	f.since, f.limit = since, limit
	return f.readings, f.err
}

func (f *fakeReadingStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 0, nil
}

type fixedPredictor domain.Hazard

func (p fixedPredictor) Predict(domain.NormalizedReading, domain.LabelSet) domain.Hazard {
	return domain.Hazard(p)
}

type fakePublisher struct {
	err       error
	published []domain.Snapshot
}

func (f *fakePublisher) Publish(_ context.Context, snap domain.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, snap)
	return nil
}

type fakeNotifier struct {
	err        error
	snapshotID string
	alerts     []domain.Alert
}

func (f *fakeNotifier) Notify(_ context.Context, snapshotID string, alerts []domain.Alert) error {
	f.snapshotID, f.alerts = snapshotID, alerts
	return f.err
}

type passFixture struct {
	store     *fakeReadingStore
	publisher *fakePublisher
	notifier  *fakeNotifier
	sink      *alerts.Service
	metrics   *observability.Metrics
	processor *pipeline.Processor
}

func newPassFixture(t *testing.T, predicted domain.Hazard) *passFixture {
	t.Helper()
	f := &passFixture{
		store:     &fakeReadingStore{readings: loadMockReadings(t)},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		sink:      alerts.NewService(50),
		metrics:   newTestMetrics(),
	}
	cfg := pipeline.PassConfig{
		Window:            24 * time.Hour,
		Limit:             100,
		Retention:         168 * time.Hour,
		DefaultPopulation: 10000,
	}
	f.processor = pipeline.NewProcessor(f.store, fixedPredictor(predicted), f.publisher, f.sink, f.notifier,
		cfg, clockwork.NewFakeClockAt(passNow), slog.Default(), f.metrics)
	return f
}

func TestProcessor_Run_PublishesSnapshot(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)

	snap, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, passNow, snap.GeneratedAt)
	require.Len(t, snap.Zones, 10)
	for _, z := range snap.Zones {
		assert.Equal(t, expectedRuleHazards[z.ID], z.Hazard, z.ID)
		assert.Equal(t, z.RuleHazard, z.Hazard, "unknown prediction falls back to the rule")
	}

	assert.Equal(t, passNow.Add(-24*time.Hour), f.store.since)
	assert.Equal(t, 100, f.store.limit)
	assert.Equal(t, passNow.Add(-168*time.Hour), f.store.cutoff)

	require.Len(t, f.publisher.published, 1)
	current, ok := f.sink.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap.ID, current.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues("success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(f.metrics.PredictorErrors))
	total := 0.0
	for _, level := range []string{"Info", "Low", "Medium", "High"} {
		total += testutil.ToFloat64(f.metrics.ZonesPublished.WithLabelValues(level))
	}
	assert.Equal(t, 10.0, total)
}

func TestProcessor_Run_NotifiesHighAndMedium(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)

	snap, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, snap.ID, f.notifier.snapshotID)
	require.Len(t, f.notifier.alerts, 7)
	for _, a := range f.notifier.alerts {
		assert.Contains(t, []domain.Severity{domain.SeverityHigh, domain.SeverityMedium}, a.Severity, a.ID)
		assert.False(t, a.IsSafe(), a.ID)
	}
	assert.Equal(t, 7.0, testutil.ToFloat64(f.metrics.AlertsNotified.WithLabelValues("sent")))
}

func TestProcessor_Run_PredictionOverridesRule(t *testing.T) {
	f := newPassFixture(t, domain.HazardFlood)

	snap, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	for _, z := range snap.Zones {
		assert.Equal(t, domain.HazardFlood, z.Hazard)
		assert.Equal(t, domain.HazardFlood, z.MLHazard)
		assert.Equal(t, expectedRuleHazards[z.ID], z.RuleHazard)
	}
	assert.Zero(t, testutil.ToFloat64(f.metrics.PredictorErrors))
}

func TestProcessor_Run_StoreFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)
	first, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	f.store.err = errors.New("disk I/O error")
	_, err = f.processor.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read recent readings")

	current, _ := f.sink.Snapshot()
	assert.Equal(t, first.ID, current.ID)
	assert.Len(t, f.publisher.published, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues("error")))
}

func TestProcessor_Run_PublishFailureLeavesServiceUntouched(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)
	f.publisher.err = errors.New("read-only file system")

	_, err := f.processor.Run(context.Background())
	require.Error(t, err)

	assert.False(t, f.sink.Ready())
	assert.Nil(t, f.notifier.alerts, "nothing is notified for an unpublished snapshot")
}

func TestProcessor_Run_NotifyFailureDoesNotFailPass(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)
	f.notifier.err = errors.New("leader not available")

	_, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, f.sink.Ready())
	assert.Equal(t, 7.0, testutil.ToFloat64(f.metrics.AlertsNotified.WithLabelValues("error")))
}

func TestProcessor_Run_EmptyWindowPublishesEmptySnapshot(t *testing.T) {
	f := newPassFixture(t, domain.HazardUnknown)
	f.store.readings = nil

	snap, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Zones)
	assert.True(t, f.sink.Ready())
	assert.Nil(t, f.notifier.alerts)
}

func TestProcessor_Run_NilNotifier(t *testing.T) {
	store := &fakeReadingStore{readings: loadMockReadings(t)}
	p := pipeline.NewProcessor(store, fixedPredictor(domain.HazardUnknown), &fakePublisher{}, alerts.NewService(0), nil,
		pipeline.PassConfig{Window: time.Hour, Limit: 10}, nil, slog.Default(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, store.cutoff.IsZero(), "pruning disabled without retention")
}
