package service

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// ratePrecision is the fractional-digit precision rates are resolved at.
const ratePrecision = 8

var one = decimal.NewFromInt(1)

// ResolveRates derives the rate for every requested currency pair from a
// table of rates-to-base-currency for one date.
//
// Identity pairs resolve to exactly 1. Cross rates divide the two to-base
// rates at 8 fractional digits, half-up. Pairs touching a currency absent
// from the table are omitted from the result, never fabricated: a missing
// rate must surface downstream as "unavailable", not as 1.
func ResolveRates(date model.Date, pairs []model.CurrencyPair, baseRates map[string]decimal.Decimal) map[model.CurrencyPair]model.FxRate {
	resolved := make(map[model.CurrencyPair]model.FxRate, len(pairs))
	for _, pair := range pairs {
		if pair.From == pair.To {
			resolved[pair] = model.FxRate{Pair: pair, Date: date, Rate: one}
			continue
		}
		from, okFrom := baseRates[pair.From]
		to, okTo := baseRates[pair.To]
		if !okFrom || !okTo || from.IsZero() || to.IsZero() {
			log.Warn().
				Str("pair", pair.String()).
				Str("date", date.String()).
				Msg("fx rate unavailable, pair omitted")
			continue
		}
		resolved[pair] = model.FxRate{
			Pair: pair,
			Date: date,
			Rate: to.DivRound(from, ratePrecision),
		}
	}
	return resolved
}

// Invert returns the rate for the opposite direction of r, at the same
// precision. rate(A,B) * Invert(rate(A,B)).Rate == 1 within 8 digits.
func Invert(r model.FxRate) model.FxRate {
	return model.FxRate{
		Pair: r.Pair.Inverse(),
		Date: r.Date,
		Rate: one.DivRound(r.Rate, ratePrecision),
	}
}
