package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// CashImpact returns the signed cash movement of a transaction.
//
// BUY, WITHDRAWAL, FX_BUY and DEDUCTION debit cash; SELL, DEPOSIT, DIVI and
// INCOME credit it; SPLIT, ADD, REDUCE, BALANCE and IGNORE leave cash
// untouched. An explicitly supplied cash amount always wins over the derived
// default.
func CashImpact(t model.Trn) decimal.Decimal {
	if t.CashAmount != nil {
		return *t.CashAmount
	}
	switch t.Type {
	case model.TrnBuy, model.TrnWithdrawal, model.TrnFxBuy, model.TrnDeduction:
		return t.TradeAmount.Neg()
	case model.TrnSell, model.TrnDeposit, model.TrnDividend, model.TrnIncome:
		return t.TradeAmount
	case model.TrnSplit, model.TrnAdd, model.TrnReduce, model.TrnBalance, model.TrnIgnore:
		return decimal.Zero
	}
	panic(fmt.Sprintf("unhandled transaction type %q", t.Type))
}
