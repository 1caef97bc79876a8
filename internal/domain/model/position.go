package model

import "github.com/shopspring/decimal"

// Position is the running accumulator for one asset within one portfolio as
// of a valuation date. It is built fresh for each accumulation pass and never
// persisted on its own.
type Position struct {
	PortfolioID string
	AssetID     string
	AsOf        Date

	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
	// CashFlow is the signed net cash impact of everything folded so far.
	CashFlow decimal.Decimal
	// Dividends is the running sum of dividend cash received.
	Dividends decimal.Decimal
}

func NewPosition(portfolioID, assetID string, asOf Date) *Position {
	return &Position{PortfolioID: portfolioID, AssetID: assetID, AsOf: asOf}
}

// AvgCost returns cost basis per unit held, zero when nothing is held.
func (p *Position) AvgCost() decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.CostBasis.DivRound(p.Quantity, 8)
}

// IsCashOnly reports whether the position carries no asset quantity.
func (p *Position) IsCashOnly() bool {
	return p.Quantity.IsZero()
}
