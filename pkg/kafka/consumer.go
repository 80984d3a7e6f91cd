package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/yangxb919/prspares-website/pkg/kafka"

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// MaxAttempts is how many times a handler runs before the message is
	// committed and skipped.
	MaxAttempts int
	// RetryWait is the base wait between attempts; it grows linearly.
	RetryWait time.Duration
}

// DefaultConsumerConfig returns a config with three attempts per message.
func DefaultConsumerConfig(brokers []string, groupID string, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topics:      topics,
		MaxAttempts: 3,
		RetryWait:   100 * time.Millisecond,
	}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads events for a consumer group and dispatches them to a Handler.
type Consumer struct {
	reader    messageReader
	handler   Handler
	cfg       ConsumerConfig
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a group consumer over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, cfg, handler, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Consumer{reader: r, handler: handler, cfg: cfg, logger: logger}
}

// Run consumes until ctx is canceled, then closes the reader. Messages are
// committed after handling, or after the last failed attempt, so one poison
// message cannot stall the group.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.Any("topics", c.cfg.Topics),
		slog.String("group", c.cfg.GroupID),
	)
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("group", c.cfg.GroupID))
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			if !sleep(ctx, c.cfg.RetryWait) {
				return nil
			}
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	labels := []string{msg.Topic, c.cfg.GroupID}

	event, err := Decode(msg.Value)
	if err != nil {
		consumerFailed.WithLabelValues(labels...).Inc()
		c.logger.Error("skipping undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}

	headers := msg.Headers
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &headers})
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.message.id", event.ID),
		),
	)
	defer span.End()

	start := time.Now()
	err = c.handle(ctx, event, msg)
	consumerDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

	if err != nil {
		consumerFailed.WithLabelValues(labels...).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("handler failed after all attempts, skipping message",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID),
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	consumerProcessed.WithLabelValues(labels...).Inc()
}

func (c *Consumer) handle(ctx context.Context, event *Event, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err = c.handler(ctx, event); err == nil {
			return nil
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}
		c.logger.Warn("handler failed, retrying",
			slog.String("event_type", event.Type),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if !sleep(ctx, time.Duration(attempt)*c.cfg.RetryWait) {
			return ctx.Err()
		}
	}
	return err
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
