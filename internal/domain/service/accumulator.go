package service

import (
	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// Accumulator folds transactions for one asset into a running Position.
//
// The fold is pure and deterministic: the same pushes always yield the same
// position, which the snapshot cache depends on. Pushes must arrive in
// (trade date, sequence) order; a regression returns
// ErrUnorderedTransactions and must be treated as an integration defect, not
// retried.
//
// Oversell is permitted: selling more than held leaves a negative quantity.
// Cost basis is reduced proportionally while quantity is positive and left
// untouched once the position is flat or short.
type Accumulator struct {
	pos     *model.Position
	prev    model.Trn
	started bool
}

func NewAccumulator(portfolioID, assetID string) *Accumulator {
	return &Accumulator{pos: model.NewPosition(portfolioID, assetID, model.Date{})}
}

// Push folds one transaction into the running position.
func (a *Accumulator) Push(t model.Trn) error {
	if a.started && earlier(t, a.prev) {
		return model.ErrUnorderedTransactions
	}
	a.started = true
	a.prev = t

	cash := CashImpact(t)
	a.pos.CashFlow = a.pos.CashFlow.Add(cash)
	if t.Type == model.TrnDividend {
		a.pos.Dividends = a.pos.Dividends.Add(cash)
	}

	switch t.Type {
	case model.TrnBuy, model.TrnAdd:
		a.pos.Quantity = a.pos.Quantity.Add(t.Quantity)
		a.pos.CostBasis = a.pos.CostBasis.Add(t.TradeAmount.Sub(t.Fees))
	case model.TrnSell, model.TrnReduce:
		a.reduceCost(t.Quantity)
		a.pos.Quantity = a.pos.Quantity.Sub(t.Quantity)
	case model.TrnSplit:
		if !t.Quantity.IsZero() {
			a.pos.Quantity = a.pos.Quantity.Mul(t.Quantity)
		}
	}
	return nil
}

// Position returns a copy of the running position stamped with asOf.
func (a *Accumulator) Position(asOf model.Date) model.Position {
	pos := *a.pos
	pos.AsOf = asOf
	return pos
}

// reduceCost removes the sold slice of the cost basis before the quantity is
// decremented. The full basis comes off when the sale flattens or shorts the
// position.
func (a *Accumulator) reduceCost(sold decimal.Decimal) {
	if !a.pos.Quantity.IsPositive() {
		return
	}
	if sold.GreaterThanOrEqual(a.pos.Quantity) {
		a.pos.CostBasis = decimal.Zero
		return
	}
	ratio := sold.DivRound(a.pos.Quantity, 8)
	a.pos.CostBasis = a.pos.CostBasis.Sub(a.pos.CostBasis.Mul(ratio))
}

func earlier(t, prev model.Trn) bool {
	if t.TradeDate.Before(prev.TradeDate) {
		return true
	}
	return t.TradeDate == prev.TradeDate && t.Seq < prev.Seq
}

// Accumulate folds time-ordered transactions for one asset into a Position
// as of a valuation date. Transactions after asOf contribute nothing but are
// still order-checked.
func Accumulate(portfolioID, assetID string, trns []model.Trn, asOf model.Date) (*model.Position, error) {
	acc := NewAccumulator(portfolioID, assetID)
	prev := model.Trn{}
	for i, t := range trns {
		if i > 0 && earlier(t, prev) {
			return nil, model.ErrUnorderedTransactions
		}
		prev = t
		if t.TradeDate.After(asOf) {
			continue
		}
		if err := acc.Push(t); err != nil {
			return nil, err
		}
	}
	pos := acc.Position(asOf)
	return &pos, nil
}
