package model

import "github.com/shopspring/decimal"

// CurrencyPair identifies a conversion direction between two ISO currencies.
type CurrencyPair struct {
	From string
	To   string
}

func NewCurrencyPair(from, to string) CurrencyPair {
	return CurrencyPair{From: from, To: to}
}

// Inverse returns the opposite conversion direction.
func (p CurrencyPair) Inverse() CurrencyPair {
	return CurrencyPair{From: p.To, To: p.From}
}

func (p CurrencyPair) String() string {
	return p.From + ":" + p.To
}

// FxRate is the rate converting one unit of Pair.From into Pair.To on Date.
type FxRate struct {
	Pair CurrencyPair
	Date Date
	Rate decimal.Decimal
}
