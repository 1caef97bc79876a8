package port

import (
	"context"

	"folio/internal/domain/model"
)

// InvalidationPublisher is the outbound side of the invalidation bus, used
// by transaction-write, price-write and FX-write paths.
type InvalidationPublisher interface {
	Publish(ctx context.Context, ev model.InvalidationEvent) error
}

// InvalidationSubscriber is the inbound side. Delivery is at-least-once;
// consumers must tolerate duplicates. The channel closes when ctx ends.
type InvalidationSubscriber interface {
	Subscribe(ctx context.Context) (<-chan model.InvalidationEvent, error)
}
