package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/yangxb919/prspares-website/pkg/kafka"
)

// CacheInvalidator drops cached catalog pages.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// ProductTopics are the topics carrying product changes.
func ProductTopics() []string {
	return []string{
		pkgkafka.Topic(pkgkafka.EventProductCreated),
		pkgkafka.Topic(pkgkafka.EventProductUpdated),
		pkgkafka.Topic(pkgkafka.EventProductDeleted),
	}
}

// NewProductChangeHandler returns a consumer handler that invalidates the
// catalog cache whenever a product is created, updated or deleted. Other
// event types are ignored. Invalidation is idempotent, so redelivered
// messages are harmless.
func NewProductChangeHandler(invalidator CacheInvalidator, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, evt *pkgkafka.Event) error {
		switch evt.Type {
		case pkgkafka.EventProductCreated, pkgkafka.EventProductUpdated, pkgkafka.EventProductDeleted:
		default:
			logger.DebugContext(ctx, "ignoring event", slog.String("event_type", evt.Type))
			return nil
		}

		var data pkgkafka.ProductChangedData
		if err := evt.DecodeData(&data); err != nil {
			// A malformed payload still signals a change.
			logger.WarnContext(ctx, "undecodable product event payload",
				slog.String("event_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}

		if err := invalidator.InvalidateCache(ctx); err != nil {
			return fmt.Errorf("invalidate catalog cache: %w", err)
		}

		logger.InfoContext(ctx, "catalog cache invalidated",
			slog.String("event_type", evt.Type),
			slog.String("product_id", data.ProductID),
		)
		return nil
	}
}
