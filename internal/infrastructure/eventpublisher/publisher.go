package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/metrics"
	"github.com/iho/tokenbank/internal/usecase"
)

// EventPublisher drains the outbox. Settlement transitions stage their
// events in the same transaction that moves money; this worker delivers
// them afterwards, so a delivered event always describes a committed
// transition.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
}

// Publisher is the delivery sink for outbox events.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start drains the outbox on a fixed cadence until ctx is canceled. The
// first drain runs immediately so a restart does not sit out a full tick.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info("outbox publisher started",
		slog.Int("batch_size", ep.batchSize),
		slog.Duration("interval", ep.interval))

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		if err := ep.processEvents(ctx); err != nil && !errors.Is(err, context.Canceled) {
			ep.logger.Error("outbox drain failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			ep.logger.Info("outbox publisher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processEvents publishes one batch of staged events in creation order.
// A failed publish leaves its event staged for the next drain; a published
// event whose mark-off fails is redelivered, so subscribers must tolerate
// duplicates.
func (ep *EventPublisher) processEvents(ctx context.Context) error {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := ep.publishEvent(ctx, event); err != nil {
			ep.logger.Error("publish failed, event stays staged",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.EventType),
				slog.String("error", err.Error()))
			continue
		}

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now()); err != nil {
			ep.logger.Error("marking event published failed, it will be redelivered",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}

	ep.logger.Info("outbox batch drained",
		slog.Int("fetched", len(events)),
		slog.Int("published", published))

	return nil
}

// publishEvent hands one event to the sink and counts the outcome.
func (ep *EventPublisher) publishEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ep.publisher.Publish(ctx, event); err != nil {
		if ep.metrics != nil {
			ep.metrics.PublishErrors.Inc()
		}
		return err
	}

	if ep.metrics != nil {
		ep.metrics.EventsPublished.Inc()
	}

	ep.logger.Debug("event delivered",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_type", event.AggregateType),
		slog.String("aggregate_id", event.AggregateID))

	return nil
}

// eventEnvelope is the wire form subscribers receive.
type eventEnvelope struct {
	ID            string         `json:"id"`
	AggregateID   string         `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RedisPublisher delivers events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// DefaultEventChannel is the pub/sub channel events go to unless
// configured otherwise.
const DefaultEventChannel = "tokenbank:events"

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the event envelope to the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(eventEnvelope{
		ID:            event.ID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, p.channel, body).Err()
}

// LogPublisher writes events to the log instead of a broker, for
// environments with no subscribers.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event with its payload inlined.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info("outbox event",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_type", event.AggregateType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("payload", string(payload)))

	return nil
}
