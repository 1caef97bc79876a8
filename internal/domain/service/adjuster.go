package service

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// AppliedKey identifies one application of a corporate event to an asset.
type AppliedKey struct {
	AssetID string
	Date    model.Date
	Type    model.TrnType
}

// AppliedIndex records synthetic transactions that already exist, so that
// re-delivered events do not double-adjust a position.
type AppliedIndex map[AppliedKey]struct{}

func NewAppliedIndex(trns []model.Trn) AppliedIndex {
	idx := make(AppliedIndex)
	for _, t := range trns {
		if t.Type == model.TrnDividend || t.Type == model.TrnSplit {
			idx[AppliedKey{AssetID: t.AssetID, Date: t.TradeDate, Type: t.Type}] = struct{}{}
		}
	}
	return idx
}

// Adjuster turns corporate events into synthetic transactions against held
// positions. Withholding rates are keyed by jurisdiction; unknown
// jurisdictions withhold nothing.
type Adjuster struct {
	withholding map[string]decimal.Decimal
}

func NewAdjuster(withholding map[string]decimal.Decimal) *Adjuster {
	if withholding == nil {
		withholding = map[string]decimal.Decimal{}
	}
	return &Adjuster{withholding: withholding}
}

// Apply produces the synthetic transaction for ev against pos, registering it
// in applied. It reports false, with no transaction, when the event is a
// no-op: cash-only or zero-quantity positions, an already-applied
// (asset, date, type) key, or a forward-dated effective date.
func (a *Adjuster) Apply(pos *model.Position, ev model.CorporateEvent, applied AppliedIndex, today model.Date) (model.Trn, bool) {
	if pos.IsCashOnly() {
		return model.Trn{}, false
	}

	effective := ev.EffectiveDate()
	if effective.After(today) {
		// Forward-dated events are suppressed until they fall due.
		log.Debug().
			Str("asset", ev.AssetID).
			Str("effective", effective.String()).
			Msg("forward-dated corporate event ignored")
		return model.Trn{Type: model.TrnIgnore}, false
	}

	var trn model.Trn
	switch ev.Type {
	case model.EventDividend:
		trn = a.dividendTrn(pos, ev, effective)
	case model.EventSplit:
		trn = splitTrn(pos, ev, effective)
	default:
		return model.Trn{}, false
	}

	key := AppliedKey{AssetID: trn.AssetID, Date: trn.TradeDate, Type: trn.Type}
	if _, dup := applied[key]; dup {
		return model.Trn{}, false
	}
	applied[key] = struct{}{}
	return trn, true
}

func (a *Adjuster) dividendTrn(pos *model.Position, ev model.CorporateEvent, effective model.Date) model.Trn {
	gross := pos.Quantity.Mul(ev.Rate)
	tax := gross.Mul(a.withholding[ev.Jurisdiction]).Round(2)
	net := gross.Sub(tax).Round(2)
	return model.Trn{
		ID:          uuid.NewString(),
		PortfolioID: pos.PortfolioID,
		AssetID:     ev.AssetID,
		Type:        model.TrnDividend,
		TradeDate:   effective,
		Tax:         tax,
		TradeAmount: net,
	}
}

func splitTrn(pos *model.Position, ev model.CorporateEvent, effective model.Date) model.Trn {
	// Quantity carries the split ratio; the fold multiplies by it.
	return model.Trn{
		ID:          uuid.NewString(),
		PortfolioID: pos.PortfolioID,
		AssetID:     ev.AssetID,
		Type:        model.TrnSplit,
		TradeDate:   effective,
		Quantity:    ev.Rate,
	}
}
