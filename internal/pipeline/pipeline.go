package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.RawReading, error)
}

// BatchLoader persists readings to the event store.
type BatchLoader interface {
	SaveReadings(ctx context.Context, readings []domain.RawReading) error
}

// Ingest orchestrates the extract-parse-store loop that feeds the event
// store from the source topic.
type Ingest struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// NewIngest creates an ingest loop with the given stages and observability.
func NewIngest(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingest {
	return &Ingest{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the loop has completed a fetch from the
// source without error.
func (p *Ingest) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("reading ingest has not reached the source topic yet")
	}
	return nil
}

// Run executes the batch ingest loop until the context is cancelled.
func (p *Ingest) Run(ctx context.Context) error {
	p.logger.Info("reading ingest started", "batch_size", p.batchSize)
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reading ingest stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// processBatch runs one extract-parse-store cycle. Returns false if the loop should stop.
func (p *Ingest) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	p.ready.Store(true)

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ReadingsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	stored, ok := p.parseAndStore(ctx, rawBatch, backoff)
	if !ok {
		return false
	}
	if stored > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// parseAndStore parses each message, stores the successes in one batch, and
// commits offsets only after the store succeeds. Unparseable messages are
// committed and skipped. Returns the number stored and false if the loop
// should stop.
func (p *Ingest) parseAndStore(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration) (int, bool) {
	readings := make([]domain.RawReading, 0, len(rawBatch))
	parsed := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("unparseable reading, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ParseErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		readings = append(readings, r)
		parsed = append(parsed, raw)
	}

	if len(readings) == 0 {
		return 0, true
	}

	if err := p.loader.SaveReadings(ctx, readings); err != nil {
		p.logger.Error("store readings failed", "error", err, "batch_size", len(readings))
		return 0, p.backoffOrStop(ctx, backoff)
	}
	p.metrics.ReadingsStored.Add(float64(len(readings)))

	for _, raw := range parsed {
		p.commitOffset(ctx, raw)
	}
	return len(readings), true
}

// backoffOrStop sleeps with the current backoff and doubles it up to
// maxBackoff. Returns false if the context ended.
func (p *Ingest) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (p *Ingest) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	return min(current*2, limit)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
