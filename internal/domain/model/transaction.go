package model

import (
	"github.com/shopspring/decimal"
)

// TrnType classifies a transaction. The set is closed: the classifier panics
// on anything outside it.
type TrnType string

const (
	TrnBuy        TrnType = "BUY"
	TrnSell       TrnType = "SELL"
	TrnDeposit    TrnType = "DEPOSIT"
	TrnWithdrawal TrnType = "WITHDRAWAL"
	TrnDividend   TrnType = "DIVI"
	TrnSplit      TrnType = "SPLIT"
	TrnFxBuy      TrnType = "FX_BUY"
	TrnIncome     TrnType = "INCOME"
	TrnDeduction  TrnType = "DEDUCTION"
	TrnBalance    TrnType = "BALANCE"
	TrnAdd        TrnType = "ADD"
	TrnReduce     TrnType = "REDUCE"
	TrnIgnore     TrnType = "IGNORE"
)

func (t TrnType) Valid() bool {
	switch t {
	case TrnBuy, TrnSell, TrnDeposit, TrnWithdrawal, TrnDividend, TrnSplit,
		TrnFxBuy, TrnIncome, TrnDeduction, TrnBalance, TrnAdd, TrnReduce, TrnIgnore:
		return true
	}
	return false
}

// IsExternalFlow reports whether the type moves money into or out of the
// portfolio by its owner, as opposed to trading activity.
func (t TrnType) IsExternalFlow() bool {
	return t == TrnDeposit || t == TrnWithdrawal
}

// IsCashOnly reports whether the type touches cash without an asset position.
func (t TrnType) IsCashOnly() bool {
	switch t {
	case TrnDeposit, TrnWithdrawal, TrnFxBuy, TrnIncome, TrnDeduction, TrnBalance:
		return true
	}
	return false
}

// Trn is an immutable transaction record. Corrections are new offsetting
// transactions, never edits.
type Trn struct {
	ID          string  `json:"id"`
	PortfolioID string  `json:"portfolioId"`
	AssetID     string  `json:"assetId"`
	Type        TrnType `json:"type"`
	TradeDate   Date    `json:"tradeDate"`
	// Seq is the stable secondary sort key breaking same-day ties.
	Seq         int64           `json:"seq"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fees        decimal.Decimal `json:"fees"`
	Tax         decimal.Decimal `json:"tax"`
	TradeAmount decimal.Decimal `json:"tradeAmount"`

	// CashAmount, when set, overrides the cash impact derived from the type.
	CashAmount   *decimal.Decimal `json:"cashAmount,omitempty"`
	CashCurrency string           `json:"cashCurrency"`

	// Rates captured at trade time.
	TradeCashRate      decimal.Decimal `json:"tradeCashRate"`
	TradeBaseRate      decimal.Decimal `json:"tradeBaseRate"`
	TradePortfolioRate decimal.Decimal `json:"tradePortfolioRate"`
}
