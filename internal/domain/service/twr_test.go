package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

func obs(d int, value, flow string) Observation {
	return Observation{
		Date:             model.NewDate(2025, time.January, d),
		MarketValue:      decimal.RequireFromString(value),
		ExternalCashFlow: decimal.RequireFromString(flow),
	}
}

func TestComputeTWRNoFlowsIsSimpleReturn(t *testing.T) {
	series := ComputeTWR([]Observation{
		obs(1, "10000", "0"),
		obs(15, "10500", "0"),
		obs(30, "11000", "0"),
	})
	// With no external flows the linked return telescopes to end/begin - 1.
	if !series.TotalReturn.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected 0.1, got %s", series.TotalReturn)
	}
}

func TestComputeTWRDepositScenario(t *testing.T) {
	// DEPOSIT $10,000 on day 1; value grows to $11,000 by day 30 with no
	// further flows: TWR = 10.00%.
	series := ComputeTWR([]Observation{
		obs(1, "10000", "10000"),
		obs(30, "11000", "0"),
	})
	if !series.TotalReturn.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected 0.1, got %s", series.TotalReturn)
	}
}

func TestComputeTWRFlowNeutral(t *testing.T) {
	// A mid-window deposit that earns nothing must not distort the return.
	series := ComputeTWR([]Observation{
		obs(1, "10000", "0"),
		obs(10, "11000", "0"),
		obs(11, "16000", "5000"),
		obs(30, "17600", "0"),
	})
	// 10% then 10% linked: 1.1 * 1.0 * 1.1 - 1 = 0.21
	if !series.TotalReturn.Equal(decimal.RequireFromString("0.21")) {
		t.Errorf("expected 0.21, got %s", series.TotalReturn)
	}
}

func TestComputeTWRIntermediateObservationsDoNotRound(t *testing.T) {
	// The day-10 and day-15 values divide into non-terminating ratios; only
	// the stretch boundaries may influence the linked result.
	series := ComputeTWR([]Observation{
		obs(1, "9000", "0"),
		obs(10, "9500", "0"),
		obs(11, "12350", "2000"),
		obs(15, "12351", "0"),
		obs(30, "13585", "0"),
	})
	// (12350-2000)/9000 = 1.15, 13585/12350 = 1.1, linked: 1.265.
	if !series.TotalReturn.Equal(decimal.RequireFromString("0.265")) {
		t.Errorf("expected 0.265, got %s", series.TotalReturn)
	}
}

func TestComputeTWRZeroBeginValueExcluded(t *testing.T) {
	series := ComputeTWR([]Observation{
		obs(1, "0", "0"),
		obs(2, "10000", "10000"),
		obs(30, "11000", "0"),
	})
	// The 0 -> 10000 step has no defined return and must not blow up.
	if !series.TotalReturn.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected 0.1, got %s", series.TotalReturn)
	}
}

func TestComputeTWRGrowthOf1000(t *testing.T) {
	series := ComputeTWR([]Observation{
		obs(1, "10000", "0"),
		obs(30, "11000", "0"),
	})
	last := series.Points[len(series.Points)-1]
	if !last.GrowthOf1000.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("expected growth of 1000 = 1100, got %s", last.GrowthOf1000)
	}
	if !last.CumulativeReturn.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected cumulative return 0.1, got %s", last.CumulativeReturn)
	}
}

func TestComputeTWRRunningSums(t *testing.T) {
	o1 := obs(1, "10000", "10000")
	o2 := obs(10, "10400", "0")
	o2.DividendFlow = decimal.RequireFromString("40")
	o3 := obs(20, "12500", "2000")
	o3.DividendFlow = decimal.RequireFromString("10")

	series := ComputeTWR([]Observation{o1, o2, o3})
	last := series.Points[2]
	if !last.NetContributions.Equal(decimal.RequireFromString("12000")) {
		t.Errorf("expected net contributions 12000, got %s", last.NetContributions)
	}
	if !last.CumulativeDividends.Equal(decimal.RequireFromString("50")) {
		t.Errorf("expected cumulative dividends 50, got %s", last.CumulativeDividends)
	}
}

func TestComputeTWREmpty(t *testing.T) {
	series := ComputeTWR(nil)
	if len(series.Points) != 0 || !series.TotalReturn.IsZero() {
		t.Errorf("expected empty series, got %+v", series)
	}
}
