package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	// Async hands messages to a background flusher; errors are then only logged.
	Async bool
}

// DefaultProducerConfig returns defaults for fire-and-forget analytics events.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events to Kafka.
type Producer struct {
	writer  messageWriter
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a producer backed by a kafka-go writer.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	if cfg.Async {
		w.Completion = func(msgs []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range msgs {
				producerErrors.WithLabelValues(m.Topic).Inc()
			}
			logger.Warn("async publish failed", slog.Int("messages", len(msgs)), slog.String("error", err.Error()))
		}
	}
	return newProducer(w, cfg.Brokers, logger)
}

func newProducer(w messageWriter, brokers []string, logger *slog.Logger) *Producer {
	return &Producer{writer: w, brokers: brokers, logger: logger}
}

// Publish writes event to topic, keyed by event.Key. The caller's trace
// context travels in the message headers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	value, err := encode(event)
	if err != nil {
		return err
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.Type)},
		{Key: "source", Value: []byte(event.Source)},
	}
	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
	})
	producerDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		producerErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}
	producerPublished.WithLabelValues(topic).Inc()

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.Type),
		slog.String("event_id", event.ID),
	)
	return nil
}

// Ping reports whether any configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil once one broker answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
