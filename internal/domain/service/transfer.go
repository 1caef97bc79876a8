package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// CashTransfer moves cash between two portfolios. ReceivedAmount may be less
// than SentAmount when transfer fees apply; it can never exceed it.
type CashTransfer struct {
	FromPortfolioID string
	ToPortfolioID   string
	Date            model.Date
	Currency        string
	SentAmount      decimal.Decimal
	// ReceivedAmount zero means the full sent amount arrived.
	ReceivedAmount   decimal.Decimal
	ReceivedCurrency string
}

// BuildTransfer validates a cash transfer and expands it into the
// withdrawal/deposit transaction pair. Violations are domain errors: they
// are rejected verbatim, never coerced or retried.
func BuildTransfer(ct CashTransfer) (withdrawal, deposit model.Trn, err error) {
	if !ct.SentAmount.IsPositive() {
		return model.Trn{}, model.Trn{}, model.NewDomainError("invalid-transfer",
			"sent amount must be positive, got %s", ct.SentAmount)
	}
	if ct.ReceivedCurrency != "" && ct.ReceivedCurrency != ct.Currency {
		return model.Trn{}, model.Trn{}, model.NewDomainError("invalid-transfer",
			"currency mismatch: sent %s, received %s", ct.Currency, ct.ReceivedCurrency)
	}
	received := ct.ReceivedAmount
	if received.IsZero() {
		received = ct.SentAmount
	}
	if received.GreaterThan(ct.SentAmount) {
		return model.Trn{}, model.Trn{}, model.NewDomainError("invalid-transfer",
			"received amount %s exceeds sent amount %s", received, ct.SentAmount)
	}

	withdrawal = model.Trn{
		ID:           uuid.NewString(),
		PortfolioID:  ct.FromPortfolioID,
		Type:         model.TrnWithdrawal,
		TradeDate:    ct.Date,
		TradeAmount:  ct.SentAmount,
		CashCurrency: ct.Currency,
	}
	deposit = model.Trn{
		ID:           uuid.NewString(),
		PortfolioID:  ct.ToPortfolioID,
		Type:         model.TrnDeposit,
		TradeDate:    ct.Date,
		TradeAmount:  received,
		CashCurrency: ct.Currency,
	}
	return withdrawal, deposit, nil
}
