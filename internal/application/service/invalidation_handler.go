package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// InvalidationHandler translates upstream change events into cache
// deletions. Delivery is at-least-once, so handling the same event twice
// must be harmless; deletions only ever remove stale state, never create it.
type InvalidationHandler struct {
	cache *CacheService
}

func NewInvalidationHandler(cache *CacheService) *InvalidationHandler {
	return &InvalidationHandler{cache: cache}
}

// Handle applies one invalidation event.
func (h *InvalidationHandler) Handle(ctx context.Context, ev model.InvalidationEvent) error {
	switch ev.ChangeType {
	case model.ChangeTransaction:
		if ev.PortfolioID == "" {
			log.Warn().Str("event", ev.ID).Msg("transaction invalidation without portfolio, dropped")
			return nil
		}
		return h.cache.InvalidateFrom(ctx, ev.PortfolioID, ev.FromDate)

	case model.ChangePrice, model.ChangeFx:
		// Cross-portfolio: one date's valuation is stale for every holder.
		return h.cache.InvalidateOnDate(ctx, ev.FromDate)

	default:
		log.Warn().Str("event", ev.ID).Str("changeType", string(ev.ChangeType)).
			Msg("unknown invalidation change type, dropped")
		return nil
	}
}

// Run drains the subscription until ctx ends. Failed events are logged and
// skipped; at-least-once redelivery retries them.
func (h *InvalidationHandler) Run(ctx context.Context, sub port.InvalidationSubscriber) error {
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	log.Info().Msg("invalidation consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := h.Handle(ctx, ev); err != nil {
				log.Error().Err(err).
					Str("event", ev.ID).
					Str("changeType", string(ev.ChangeType)).
					Msg("invalidation failed")
			}
		}
	}
}
