package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

// OutboxSource reads committed-but-unrelayed events from the event store.
type OutboxSource interface {
	GetUnpublished(ctx context.Context, limit int) ([]domain.DomainEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Publisher delivers events to external consumers.
type Publisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// RelayMetrics counts relay outcomes.
type RelayMetrics interface {
	EventRelayed()
	EventRelayFailed()
}

// Relay completes the transactional outbox: the unit of work writes events
// in the same transaction as the state change, and the relay delivers them
// after commit. An event is marked published only after delivery succeeds,
// so delivery is at-least-once; consumers deduplicate on eventId.
type Relay struct {
	source    OutboxSource
	publisher Publisher
	logger    zerolog.Logger
	metrics   RelayMetrics
	batchSize int
	interval  time.Duration
}

// Config for Relay.
type Config struct {
	Source    OutboxSource
	Publisher Publisher
	Logger    zerolog.Logger
	Metrics   RelayMetrics
	BatchSize int           // Number of events to fetch per batch
	Interval  time.Duration // Polling interval
}

// NewRelay creates a new outbox relay.
func NewRelay(cfg Config) *Relay {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &Relay{
		source:    cfg.Source,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
	}
}

// Start runs the relay until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().
		Int("batch_size", r.batchSize).
		Dur("interval", r.interval).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Drain whatever is pending before the first tick.
	if err := r.processBatch(ctx); err != nil {
		r.logger.Error().Err(err).Msg("outbox batch failed on start")
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.Error().Err(err).Msg("outbox batch failed")
			}
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) error {
	events, err := r.source.GetUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	r.logger.Debug().Int("count", len(events)).Msg("relaying outbox events")

	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_id", event.EventID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			if r.metrics != nil {
				r.metrics.EventRelayFailed()
			}

			// Keep going; the failed event stays unpublished and is
			// retried on the next batch.
			continue
		}

		if err := r.source.MarkPublished(ctx, event.EventID, time.Now().UTC()); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_id", event.EventID).
				Msg("failed to mark event as published")

			// Stop the batch: re-publishing is preferable to skipping, but
			// a broken mark step usually means the store is unhealthy.
			return err
		}

		if r.metrics != nil {
			r.metrics.EventRelayed()
		}
	}

	return nil
}

// LogPublisher is a publisher that writes events to the log. It stands in
// for a real message broker in development.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
