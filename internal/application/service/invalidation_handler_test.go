package service

import (
	"context"
	"testing"
	"time"

	"folio/internal/domain/model"
)

func TestHandleTransactionInvalidation(t *testing.T) {
	store := newMockStore()
	handler := NewInvalidationHandler(NewCacheService(store))
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		d := model.NewDate(2025, time.May, day)
		store.Store(ctx, "pf-1", []model.Snapshot{snapOn("pf-1", d, "100")})
		store.Store(ctx, "pf-2", []model.Snapshot{snapOn("pf-2", d, "100")})
	}

	ev := model.InvalidationEvent{
		ID:          "ev-1",
		ChangeType:  model.ChangeTransaction,
		PortfolioID: "pf-1",
		FromDate:    model.NewDate(2025, time.May, 3),
	}
	if err := handler.Handle(ctx, ev); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if store.count("pf-1") != 2 {
		t.Errorf("expected pf-1 trimmed to 2 snapshots, got %d", store.count("pf-1"))
	}
	if store.count("pf-2") != 5 {
		t.Errorf("expected pf-2 untouched, got %d", store.count("pf-2"))
	}
}

func TestHandlePriceInvalidationCrossPortfolio(t *testing.T) {
	store := newMockStore()
	handler := NewInvalidationHandler(NewCacheService(store))
	ctx := context.Background()
	d := model.NewDate(2025, time.May, 3)

	for _, pf := range []string{"pf-1", "pf-2", "pf-3"} {
		store.Store(ctx, pf, []model.Snapshot{
			snapOn(pf, d.AddDays(-1), "100"),
			snapOn(pf, d, "100"),
			snapOn(pf, d.AddDays(1), "100"),
		})
	}

	// No portfolio id on PRICE events: every holder's snapshot on D goes.
	ev := model.InvalidationEvent{ID: "ev-2", ChangeType: model.ChangePrice, FromDate: d}
	if err := handler.Handle(ctx, ev); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	for _, pf := range []string{"pf-1", "pf-2", "pf-3"} {
		if store.count(pf) != 2 {
			t.Errorf("%s: expected D-1 and D+1 to survive, got %d snapshots", pf, store.count(pf))
		}
	}
}

func TestHandleIsIdempotent(t *testing.T) {
	store := newMockStore()
	handler := NewInvalidationHandler(NewCacheService(store))
	ctx := context.Background()
	d := model.NewDate(2025, time.May, 3)
	store.Store(ctx, "pf-1", []model.Snapshot{snapOn("pf-1", d, "100")})

	ev := model.InvalidationEvent{ID: "ev-3", ChangeType: model.ChangeFx, FromDate: d}
	for i := 0; i < 3; i++ {
		if err := handler.Handle(ctx, ev); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}
	if store.count("pf-1") != 0 {
		t.Errorf("expected snapshot deleted, got %d", store.count("pf-1"))
	}
}

func TestHandleDropsMalformedEvents(t *testing.T) {
	store := newMockStore()
	handler := NewInvalidationHandler(NewCacheService(store))
	ctx := context.Background()

	noPortfolio := model.InvalidationEvent{ChangeType: model.ChangeTransaction, FromDate: model.NewDate(2025, time.May, 1)}
	if err := handler.Handle(ctx, noPortfolio); err != nil {
		t.Errorf("expected malformed transaction event dropped, got %v", err)
	}

	unknown := model.InvalidationEvent{ChangeType: model.ChangeType("REBALANCE")}
	if err := handler.Handle(ctx, unknown); err != nil {
		t.Errorf("expected unknown change type dropped, got %v", err)
	}
}

type stubSubscriber struct {
	events []model.InvalidationEvent
}

func (s *stubSubscriber) Subscribe(ctx context.Context) (<-chan model.InvalidationEvent, error) {
	ch := make(chan model.InvalidationEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func TestRunDrainsSubscription(t *testing.T) {
	store := newMockStore()
	handler := NewInvalidationHandler(NewCacheService(store))
	ctx := context.Background()
	d := model.NewDate(2025, time.May, 3)
	store.Store(ctx, "pf-1", []model.Snapshot{snapOn("pf-1", d, "100")})

	sub := &stubSubscriber{events: []model.InvalidationEvent{
		{ID: "ev-4", ChangeType: model.ChangePrice, FromDate: d},
	}}
	if err := handler.Run(ctx, sub); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if store.count("pf-1") != 0 {
		t.Errorf("expected snapshot deleted via subscription, got %d", store.count("pf-1"))
	}
}
