package service

import (
	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

var thousand = decimal.NewFromInt(1000)

// Observation is one day of valuation input to the TWR calculation.
// ExternalCashFlow is the net of deposits and withdrawals dated that day,
// not trading activity.
type Observation struct {
	Date             model.Date
	MarketValue      decimal.Decimal
	ExternalCashFlow decimal.Decimal
	DividendFlow     decimal.Decimal
}

// Point is one day of the computed performance series.
type Point struct {
	Date                model.Date
	MarketValue         decimal.Decimal
	ExternalCashFlow    decimal.Decimal
	NetContributions    decimal.Decimal
	CumulativeDividends decimal.Decimal
	GrowthOf1000        decimal.Decimal
	CumulativeReturn    decimal.Decimal
}

// Series is a time-weighted-return series over a lookback window.
type Series struct {
	Points []Point
	// TotalReturn is the geometrically linked return over the whole window.
	TotalReturn decimal.Decimal
}

// ComputeTWR links sub-period returns over a chronological observation
// series.
//
// The timeline partitions at every date carrying a non-zero external flow.
// Cash flows follow the start-of-day convention: a sub-period ends just
// before a flow, so its return is (endValue - flow) / beginValue - 1, with
// beginValue taken at the start of the flow-free stretch. Each stretch is a
// single division, so a series with no flows reduces exactly to
// end/begin - 1; no intermediate rounding is applied.
//
// A stretch whose begin value is zero or negative has no defined return and
// is excluded from linking; it contributes a factor of 1 rather than an
// infinity or NaN.
func ComputeTWR(obs []Observation) Series {
	if len(obs) == 0 {
		return Series{TotalReturn: decimal.Zero}
	}

	points := make([]Point, 0, len(obs))
	// linked multiplies the returns of completed stretches; running extends
	// it with the open stretch up to the current observation.
	linked := one
	running := one
	stretchBegin := obs[0].MarketValue
	contributions := decimal.Zero
	dividends := decimal.Zero

	for i, o := range obs {
		if i > 0 {
			switch {
			case !o.ExternalCashFlow.IsZero():
				if stretchBegin.IsPositive() {
					linked = linked.Mul(o.MarketValue.Sub(o.ExternalCashFlow).Div(stretchBegin))
				}
				stretchBegin = o.MarketValue
				running = linked
			case stretchBegin.IsPositive():
				running = linked.Mul(o.MarketValue.Div(stretchBegin))
			default:
				stretchBegin = o.MarketValue
				running = linked
			}
		}
		contributions = contributions.Add(o.ExternalCashFlow)
		dividends = dividends.Add(o.DividendFlow)

		points = append(points, Point{
			Date:                o.Date,
			MarketValue:         o.MarketValue,
			ExternalCashFlow:    o.ExternalCashFlow,
			NetContributions:    contributions,
			CumulativeDividends: dividends,
			GrowthOf1000:        thousand.Mul(running),
			CumulativeReturn:    running.Sub(one),
		})
	}

	return Series{
		Points:      points,
		TotalReturn: running.Sub(one),
	}
}
