package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// BackfillService recomputes snapshot history across every portfolio, e.g.
// after onboarding a corporate-event source or wiping the cache.
//
// Portfolios are independent, so they run through a bounded worker pool with
// no shared state beyond the result list. The checkpoint unit is one whole
// portfolio: cancellation stops picking up new portfolios, and a portfolio
// that failed mid-computation is simply retried from scratch next run.
type BackfillService struct {
	portfolios  port.PortfolioSource
	performance *PerformanceService
	workers     int
}

func NewBackfillService(portfolios port.PortfolioSource, performance *PerformanceService, workers int) *BackfillService {
	if workers <= 0 {
		workers = 4
	}
	return &BackfillService{portfolios: portfolios, performance: performance, workers: workers}
}

// Run queries every portfolio over the window, repopulating the cache as a
// side effect. Per-portfolio failures are collected, not fatal to the batch.
func (s *BackfillService) Run(ctx context.Context, from, to model.Date) error {
	pfs, err := s.portfolios.Portfolios(ctx)
	if err != nil {
		return fmt.Errorf("portfolio list: %w", err)
	}
	log.Info().
		Int("portfolios", len(pfs)).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("backfill started")

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for _, pf := range pfs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(pf model.Portfolio) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.performance.Query(ctx, pf.ID, from, to); err != nil {
				log.Error().Err(err).Str("portfolio", pf.ID).Msg("backfill portfolio failed")
				mu.Lock()
				failed = append(failed, pf.ID)
				mu.Unlock()
			}
		}(pf)
	}
	wg.Wait()

	if len(failed) > 0 {
		return fmt.Errorf("backfill failed for %d of %d portfolios: %v", len(failed), len(pfs), failed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().Int("portfolios", len(pfs)).Msg("backfill complete")
	return nil
}
