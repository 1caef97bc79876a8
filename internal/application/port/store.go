package port

import (
	"context"

	"folio/internal/domain/model"
)

// SnapshotStore persists cached daily valuations keyed by
// (portfolio, valuation date). Rows hold fully derived data: any of them can
// be dropped and rebuilt from transactions, prices and FX.
type SnapshotStore interface {
	// Find returns the stored snapshots among the requested dates. A partial
	// or empty result is not an error; missing dates are recomputed.
	Find(ctx context.Context, portfolioID string, dates []model.Date) ([]model.Snapshot, error)

	// Store upserts snapshots by (portfolio, date); last write wins.
	Store(ctx context.Context, portfolioID string, snapshots []model.Snapshot) error

	// DeleteFrom removes all snapshots for the portfolio on or after from.
	DeleteFrom(ctx context.Context, portfolioID string, from model.Date) error

	// DeleteOn removes every portfolio's snapshot on exactly date.
	DeleteOn(ctx context.Context, date model.Date) error

	// DeletePortfolio wipes all snapshots for the portfolio.
	DeletePortfolio(ctx context.Context, portfolioID string) error

	Close() error
}
