package sqliteledger

import (
	"context"
	"fmt"

	"folio/internal/domain/model"
)

// Writer side of the ledger. Ingest jobs and fixtures load data through
// these; the performance engine itself only reads.

func (s *Source) SavePortfolio(ctx context.Context, p model.Portfolio) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, owner, base_currency, reporting_currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner,
			base_currency = excluded.base_currency,
			reporting_currency = excluded.reporting_currency`,
		p.ID, p.Name, p.Owner, p.BaseCurrency, p.ReportingCurrency)
	if err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

func (s *Source) SaveTransactions(ctx context.Context, trns []model.Trn) error {
	if len(trns) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, portfolio_id, asset_id, type, trade_date, seq,
			quantity, price, fees, tax, trade_amount, cash_amount, cash_currency,
			trade_cash_rate, trade_base_rate, trade_portfolio_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	defer stmt.Close()

	for _, t := range trns {
		var cashAmount any
		if t.CashAmount != nil {
			cashAmount = t.CashAmount.String()
		}
		_, err := stmt.ExecContext(ctx, t.ID, t.PortfolioID, t.AssetID, string(t.Type),
			t.TradeDate.String(), t.Seq,
			t.Quantity.String(), t.Price.String(), t.Fees.String(), t.Tax.String(),
			t.TradeAmount.String(), cashAmount, t.CashCurrency,
			t.TradeCashRate.String(), t.TradeBaseRate.String(), t.TradePortfolioRate.String())
		if err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Source) SavePrice(ctx context.Context, assetID string, date model.Date, close string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prices (asset_id, price_date, close) VALUES (?, ?, ?)
		ON CONFLICT (asset_id, price_date) DO UPDATE SET close = excluded.close`,
		assetID, date.String(), close)
	if err != nil {
		return fmt.Errorf("save price: %w", err)
	}
	return nil
}

func (s *Source) SaveRate(ctx context.Context, currency string, date model.Date, rate string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fx_rates (currency, rate_date, rate) VALUES (?, ?, ?)
		ON CONFLICT (currency, rate_date) DO UPDATE SET rate = excluded.rate`,
		currency, date.String(), rate)
	if err != nil {
		return fmt.Errorf("save fx rate: %w", err)
	}
	return nil
}

func (s *Source) SaveEvent(ctx context.Context, ev model.CorporateEvent) error {
	var pay any
	if !ev.PayDate.IsZero() {
		pay = ev.PayDate.String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO corporate_events (id, asset_id, type, record_date, pay_date, rate, jurisdiction, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			asset_id = excluded.asset_id,
			type = excluded.type,
			record_date = excluded.record_date,
			pay_date = excluded.pay_date,
			rate = excluded.rate,
			jurisdiction = excluded.jurisdiction,
			source = excluded.source`,
		ev.ID, ev.AssetID, string(ev.Type), ev.RecordDate.String(), pay,
		ev.Rate.String(), ev.Jurisdiction, ev.Source)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}
