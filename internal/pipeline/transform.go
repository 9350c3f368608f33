package pipeline

import (
	"context"

	"github.com/couchcryptid/hazard-engine/internal/domain"
)

// ReadingTransformer decodes collector messages into readings.
type ReadingTransformer struct{}

// NewTransformer creates a ReadingTransformer.
func NewTransformer() *ReadingTransformer {
	return &ReadingTransformer{}
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.RawReading, error) {
	return domain.ParseRawEvent(raw)
}
