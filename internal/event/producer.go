package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yangxb919/prspares-website/internal/catalog"
	pkgkafka "github.com/yangxb919/prspares-website/pkg/kafka"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

// SourceCatalogService identifies events published by this service.
const SourceCatalogService = "prspares-catalog"

// Publisher writes an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog analytics events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCatalogSearched publishes a catalog.searched event for a filtered
// catalog read. Events are keyed by model so one model's searches stay in
// order.
func (p *Producer) PublishCatalogSearched(ctx context.Context, q catalog.Query, totalCount int) error {
	data := pkgkafka.SearchedData{
		Search:     q.Search,
		Model:      q.Model,
		Page:       q.Page,
		TotalCount: totalCount,
		UserID:     logger.UserIDFromContext(ctx),
	}

	evt, err := pkgkafka.NewEvent(pkgkafka.EventCatalogSearched, q.Model, SourceCatalogService, data)
	if err != nil {
		return err
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, pkgkafka.Topic(pkgkafka.EventCatalogSearched), evt); err != nil {
		return fmt.Errorf("publish %s: %w", pkgkafka.EventCatalogSearched, err)
	}

	p.logger.DebugContext(ctx, "published catalog.searched",
		slog.String("event_id", evt.ID),
		slog.Int("total_count", totalCount),
	)
	return nil
}
