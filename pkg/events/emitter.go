// Package events handles event emission for product lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/kafka"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType values published by the emitter
const (
	EventTypeProductDiscovered = "product.discovered"
	EventTypeProductActive     = "product.active"
	EventTypeProductMissing    = "product.missing"
	EventTypeMatchRecorded     = "match.recorded"
)

// Emitter publishes catalog lifecycle and match events. A nil producer
// disables emission, so callers never need to guard these methods.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitProductDiscovered emits an event for a product seen for the first time
func (e *Emitter) EmitProductDiscovered(ctx context.Context, entry *models.LedgerEntry) error {
	if e.producer == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProductDiscovered")
	defer span.End()

	event := &kafka.ProductEvent{
		EventType:   EventTypeProductDiscovered,
		CanonicalID: entry.CanonicalID,
		DisplayName: entry.DisplayName,
		Status:      string(entry.Status),
		Price:       entry.LastKnownPrice,
	}

	if err := e.producer.PublishProductEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.discovered event")
		return err
	}

	return nil
}

// EmitProductActive emits an event for a product that reappeared in a snapshot
func (e *Emitter) EmitProductActive(ctx context.Context, entry *models.LedgerEntry) error {
	if e.producer == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProductActive")
	defer span.End()

	event := &kafka.ProductEvent{
		EventType:   EventTypeProductActive,
		CanonicalID: entry.CanonicalID,
		DisplayName: entry.DisplayName,
		Status:      string(models.LedgerStatusActive),
		Price:       entry.LastKnownPrice,
	}

	if err := e.producer.PublishProductEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.active event")
		return err
	}

	return nil
}

// EmitProductMissing emits an event for a product absent from the latest snapshot
func (e *Emitter) EmitProductMissing(ctx context.Context, entry *models.LedgerEntry) error {
	if e.producer == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProductMissing")
	defer span.End()

	event := &kafka.ProductEvent{
		EventType:   EventTypeProductMissing,
		CanonicalID: entry.CanonicalID,
		DisplayName: entry.DisplayName,
		Status:      string(models.LedgerStatusMissing),
		Price:       entry.LastKnownPrice,
	}

	if err := e.producer.PublishProductEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.missing event")
		return err
	}

	return nil
}

// EmitMatchRecorded emits an event for a flushed match result
func (e *Emitter) EmitMatchRecorded(ctx context.Context, result *models.MatchResult) error {
	if e.producer == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchRecorded")
	defer span.End()

	event := &kafka.MatchEvent{
		EventType:     EventTypeMatchRecorded,
		RunID:         result.RunID,
		ReferenceID:   result.ReferenceID,
		ReferenceName: result.ReferenceName,
		SourceID:      result.MatchedSourceID,
		Confidence:    string(result.Confidence),
		Reason:        result.Reason,
		Timestamp:     result.CreatedAt,
	}

	if err := e.producer.PublishMatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.recorded event")
		return err
	}

	return nil
}
