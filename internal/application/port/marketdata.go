package port

import (
	"context"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// TransactionSource supplies a portfolio's transaction history, ordered by
// (trade date, sequence), up to and including a valuation date.
type TransactionSource interface {
	Transactions(ctx context.Context, portfolioID string, asOf model.Date) ([]model.Trn, error)
}

// PriceSource supplies closing prices in bulk, one round trip for all
// requested dates and assets. Missing entries are simply absent from the
// result.
type PriceSource interface {
	Prices(ctx context.Context, dates []model.Date, assetIDs []string) (map[model.Date]map[string]decimal.Decimal, error)
}

// FxSource supplies, per date in the range, the table of rates from each
// currency to the base currency.
type FxSource interface {
	Rates(ctx context.Context, from, to model.Date, currencies []string) (map[model.Date]map[string]decimal.Decimal, error)
}

// PortfolioSource resolves portfolio identity and currency context.
type PortfolioSource interface {
	Portfolio(ctx context.Context, id string) (model.Portfolio, error)
	Portfolios(ctx context.Context) ([]model.Portfolio, error)
}

// EventSource supplies corporate events recorded against assets in a window.
type EventSource interface {
	Events(ctx context.Context, assetIDs []string, from, to model.Date) ([]model.CorporateEvent, error)
}
