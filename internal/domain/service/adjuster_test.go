package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

var (
	recordDate = model.NewDate(2025, time.June, 10)
	payDate    = model.NewDate(2025, time.June, 24)
	todayDate  = model.NewDate(2025, time.July, 1)
)

func heldPosition(qty string) *model.Position {
	pos := model.NewPosition("pf-1", "asset-1", recordDate)
	pos.Quantity = decimal.RequireFromString(qty)
	return pos
}

func dividendEvent(rate string) model.CorporateEvent {
	return model.CorporateEvent{
		ID:         "ev-1",
		AssetID:    "asset-1",
		Type:       model.EventDividend,
		RecordDate: recordDate,
		PayDate:    payDate,
		Rate:       decimal.RequireFromString(rate),
	}
}

func TestApplyDividend(t *testing.T) {
	adj := NewAdjuster(nil)
	trn, ok := adj.Apply(heldPosition("100"), dividendEvent("0.25"), AppliedIndex{}, todayDate)
	if !ok {
		t.Fatal("expected dividend to apply")
	}
	if trn.Type != model.TrnDividend {
		t.Errorf("expected DIVI, got %s", trn.Type)
	}
	if trn.TradeDate != payDate {
		t.Errorf("expected pay date %s, got %s", payDate, trn.TradeDate)
	}
	if !trn.TradeAmount.Equal(decimal.RequireFromString("25")) {
		t.Errorf("expected 25, got %s", trn.TradeAmount)
	}
}

func TestApplyDividendWithholding(t *testing.T) {
	adj := NewAdjuster(map[string]decimal.Decimal{"US": decimal.RequireFromString("0.15")})

	ev := dividendEvent("0.25")
	ev.Jurisdiction = "US"
	trn, ok := adj.Apply(heldPosition("100"), ev, AppliedIndex{}, todayDate)
	if !ok {
		t.Fatal("expected dividend to apply")
	}
	if !trn.Tax.Equal(decimal.RequireFromString("3.75")) {
		t.Errorf("expected withholding 3.75, got %s", trn.Tax)
	}
	if !trn.TradeAmount.Equal(decimal.RequireFromString("21.25")) {
		t.Errorf("expected net 21.25, got %s", trn.TradeAmount)
	}
}

func TestApplyDividendUnknownJurisdictionWithholdsNothing(t *testing.T) {
	adj := NewAdjuster(map[string]decimal.Decimal{"US": decimal.RequireFromString("0.15")})

	ev := dividendEvent("0.25")
	ev.Jurisdiction = "XX"
	trn, ok := adj.Apply(heldPosition("100"), ev, AppliedIndex{}, todayDate)
	if !ok {
		t.Fatal("expected dividend to apply")
	}
	if !trn.Tax.IsZero() {
		t.Errorf("expected zero withholding, got %s", trn.Tax)
	}
}

func TestApplyDividendRecordDateFallback(t *testing.T) {
	adj := NewAdjuster(nil)
	ev := dividendEvent("0.25")
	ev.PayDate = model.Date{}
	trn, ok := adj.Apply(heldPosition("100"), ev, AppliedIndex{}, todayDate)
	if !ok {
		t.Fatal("expected dividend to apply")
	}
	if trn.TradeDate != recordDate {
		t.Errorf("expected record date %s, got %s", recordDate, trn.TradeDate)
	}
}

func TestApplySplit(t *testing.T) {
	adj := NewAdjuster(nil)
	ev := model.CorporateEvent{
		AssetID:    "asset-1",
		Type:       model.EventSplit,
		RecordDate: recordDate,
		Rate:       decimal.NewFromInt(2),
	}
	trn, ok := adj.Apply(heldPosition("100"), ev, AppliedIndex{}, todayDate)
	if !ok {
		t.Fatal("expected split to apply")
	}
	if trn.Type != model.TrnSplit {
		t.Errorf("expected SPLIT, got %s", trn.Type)
	}
	if !trn.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected ratio 2, got %s", trn.Quantity)
	}
	if !CashImpact(trn).IsZero() {
		t.Errorf("expected zero cash impact for split")
	}
}

func TestApplySkipsZeroQuantityPosition(t *testing.T) {
	adj := NewAdjuster(nil)
	if _, ok := adj.Apply(heldPosition("0"), dividendEvent("0.25"), AppliedIndex{}, todayDate); ok {
		t.Error("expected zero-quantity position to be skipped")
	}
}

func TestApplyForwardDatedSuppressed(t *testing.T) {
	adj := NewAdjuster(nil)
	ev := dividendEvent("0.25")
	ev.PayDate = todayDate.AddDays(7)

	trn, ok := adj.Apply(heldPosition("100"), ev, AppliedIndex{}, todayDate)
	if ok {
		t.Fatal("expected forward-dated event to be suppressed")
	}
	if trn.Type != model.TrnIgnore {
		t.Errorf("expected IGNORE result, got %q", trn.Type)
	}
}

func TestApplyIdempotent(t *testing.T) {
	adj := NewAdjuster(nil)
	applied := AppliedIndex{}

	first, ok := adj.Apply(heldPosition("100"), dividendEvent("0.25"), applied, todayDate)
	if !ok {
		t.Fatal("expected first application to succeed")
	}
	if _, ok := adj.Apply(heldPosition("100"), dividendEvent("0.25"), applied, todayDate); ok {
		t.Fatal("expected second application to be a no-op")
	}

	// The position after one application equals the position after two.
	pos := heldPosition("100")
	pos.CashFlow = pos.CashFlow.Add(CashImpact(first))
	if !pos.CashFlow.Equal(decimal.RequireFromString("25")) {
		t.Errorf("expected single dividend credit of 25, got %s", pos.CashFlow)
	}
}

func TestNewAppliedIndexSeedsFromExistingSynthetics(t *testing.T) {
	existing := []model.Trn{
		{AssetID: "asset-1", Type: model.TrnDividend, TradeDate: payDate},
		{AssetID: "asset-1", Type: model.TrnBuy, TradeDate: payDate},
	}
	idx := NewAppliedIndex(existing)
	if len(idx) != 1 {
		t.Fatalf("expected 1 synthetic key, got %d", len(idx))
	}

	adj := NewAdjuster(nil)
	if _, ok := adj.Apply(heldPosition("100"), dividendEvent("0.25"), idx, todayDate); ok {
		t.Error("expected event matching existing synthetic to be a no-op")
	}
}
