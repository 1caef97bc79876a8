package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// CacheService fronts the snapshot store with degrade-to-miss semantics: the
// cache is a pure optimization, so a failing store must never prevent a
// correct (if slower) full recomputation.
type CacheService struct {
	store port.SnapshotStore
}

func NewCacheService(store port.SnapshotStore) *CacheService {
	return &CacheService{store: store}
}

// FindSnapshots returns whatever subset of the requested dates the store
// holds, keyed by date. A store failure is logged and treated as a full
// cache miss.
func (s *CacheService) FindSnapshots(ctx context.Context, portfolioID string, dates []model.Date) map[model.Date]model.Snapshot {
	found, err := s.store.Find(ctx, portfolioID, dates)
	if err != nil {
		log.Warn().Err(err).
			Str("portfolio", portfolioID).
			Msg("snapshot lookup failed, treating as cache miss")
		return map[model.Date]model.Snapshot{}
	}
	byDate := make(map[model.Date]model.Snapshot, len(found))
	for _, snap := range found {
		byDate[snap.Date] = snap
	}
	return byDate
}

// StoreSnapshots upserts computed snapshots best-effort. A store failure is
// logged and swallowed; the next query simply recomputes.
func (s *CacheService) StoreSnapshots(ctx context.Context, portfolioID string, snapshots []model.Snapshot) {
	if len(snapshots) == 0 {
		return
	}
	if err := s.store.Store(ctx, portfolioID, snapshots); err != nil {
		log.Warn().Err(err).
			Str("portfolio", portfolioID).
			Int("snapshots", len(snapshots)).
			Msg("snapshot write failed, skipped")
	}
}

// InvalidateFrom removes the portfolio's snapshots on or after from. A new
// or edited transaction can only affect valuations from its trade date
// forward.
func (s *CacheService) InvalidateFrom(ctx context.Context, portfolioID string, from model.Date) error {
	return s.store.DeleteFrom(ctx, portfolioID, from)
}

// InvalidateOnDate removes every portfolio's snapshot on exactly date. A
// price or FX change retroactively affects that one date across all holders.
func (s *CacheService) InvalidateOnDate(ctx context.Context, date model.Date) error {
	return s.store.DeleteOn(ctx, date)
}

// InvalidatePortfolio wipes the portfolio's snapshots entirely.
func (s *CacheService) InvalidatePortfolio(ctx context.Context, portfolioID string) error {
	return s.store.DeletePortfolio(ctx, portfolioID)
}
