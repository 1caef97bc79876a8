package model

import "github.com/shopspring/decimal"

// Snapshot is a cached daily valuation for one portfolio. Rows are always
// replaced whole, never patched in place.
type Snapshot struct {
	PortfolioID         string          `json:"portfolioId"`
	Date                Date            `json:"date"`
	MarketValue         decimal.Decimal `json:"marketValue"`
	ExternalCashFlow    decimal.Decimal `json:"externalCashFlow"`
	NetContributions    decimal.Decimal `json:"netContributions"`
	CumulativeDividends decimal.Decimal `json:"cumulativeDividends"`
}

// ChangeType identifies which upstream data changed.
type ChangeType string

const (
	ChangeTransaction ChangeType = "TRANSACTION"
	ChangePrice       ChangeType = "PRICE"
	ChangeFx          ChangeType = "FX"
)

// InvalidationEvent signals that cached snapshots may be stale.
//
// TRANSACTION events are portfolio-scoped: everything for PortfolioID from
// FromDate onward is stale. PRICE and FX events are cross-portfolio: every
// portfolio's snapshot on exactly FromDate is stale.
type InvalidationEvent struct {
	ID          string     `json:"id"`
	ChangeType  ChangeType `json:"changeType"`
	PortfolioID string     `json:"portfolioId,omitempty"`
	AssetID     string     `json:"assetId,omitempty"`
	FromDate    Date       `json:"fromDate"`
}
