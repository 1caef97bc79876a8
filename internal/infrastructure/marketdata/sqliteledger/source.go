package sqliteledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Source reads portfolios, transactions, prices, fx rates and corporate
// events from a sqlite ledger database. It backs every collaborator port the
// performance service pulls from.
type Source struct {
	db *sql.DB
}

func New(path string) (*Source, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Source{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS portfolios (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			owner TEXT NOT NULL DEFAULT '',
			base_currency TEXT NOT NULL,
			reporting_currency TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL,
			asset_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			quantity TEXT NOT NULL DEFAULT '0',
			price TEXT NOT NULL DEFAULT '0',
			fees TEXT NOT NULL DEFAULT '0',
			tax TEXT NOT NULL DEFAULT '0',
			trade_amount TEXT NOT NULL DEFAULT '0',
			cash_amount TEXT,
			cash_currency TEXT NOT NULL DEFAULT '',
			trade_cash_rate TEXT NOT NULL DEFAULT '0',
			trade_base_rate TEXT NOT NULL DEFAULT '0',
			trade_portfolio_rate TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_date
			ON transactions (portfolio_id, trade_date, seq)`,
		`CREATE TABLE IF NOT EXISTS prices (
			asset_id TEXT NOT NULL,
			price_date TEXT NOT NULL,
			close TEXT NOT NULL,
			PRIMARY KEY (asset_id, price_date)
		)`,
		`CREATE TABLE IF NOT EXISTS fx_rates (
			currency TEXT NOT NULL,
			rate_date TEXT NOT NULL,
			rate TEXT NOT NULL,
			PRIMARY KEY (currency, rate_date)
		)`,
		`CREATE TABLE IF NOT EXISTS corporate_events (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			type TEXT NOT NULL,
			record_date TEXT NOT NULL,
			pay_date TEXT,
			rate TEXT NOT NULL DEFAULT '0',
			jurisdiction TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

func (s *Source) Portfolio(ctx context.Context, id string) (model.Portfolio, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner, base_currency, reporting_currency FROM portfolios WHERE id = ?`, id)
	var p model.Portfolio
	if err := row.Scan(&p.ID, &p.Name, &p.Owner, &p.BaseCurrency, &p.ReportingCurrency); err != nil {
		if err == sql.ErrNoRows {
			return model.Portfolio{}, model.NewDomainError("portfolio-not-found", "portfolio %s not found", id)
		}
		return model.Portfolio{}, fmt.Errorf("query portfolio: %w", err)
	}
	return p, nil
}

func (s *Source) Portfolios(ctx context.Context) ([]model.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner, base_currency, reporting_currency FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query portfolios: %w", err)
	}
	defer rows.Close()

	var out []model.Portfolio
	for rows.Next() {
		var p model.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner, &p.BaseCurrency, &p.ReportingCurrency); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Source) Transactions(ctx context.Context, portfolioID string, asOf model.Date) ([]model.Trn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, portfolio_id, asset_id, type, trade_date, seq,
			quantity, price, fees, tax, trade_amount, cash_amount, cash_currency,
			trade_cash_rate, trade_base_rate, trade_portfolio_rate
		FROM transactions
		WHERE portfolio_id = ? AND trade_date <= ?
		ORDER BY trade_date, seq`, portfolioID, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Trn
	for rows.Next() {
		t, err := scanTrn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrn(rows *sql.Rows) (model.Trn, error) {
	var (
		t          model.Trn
		tradeDate  string
		qty, px    string
		fees, tax  string
		amount     string
		cashAmount sql.NullString
		cashRate   string
		baseRate   string
		pfRate     string
	)
	err := rows.Scan(&t.ID, &t.PortfolioID, &t.AssetID, &t.Type, &tradeDate, &t.Seq,
		&qty, &px, &fees, &tax, &amount, &cashAmount, &t.CashCurrency,
		&cashRate, &baseRate, &pfRate)
	if err != nil {
		return model.Trn{}, err
	}
	if t.TradeDate, err = model.ParseDate(tradeDate); err != nil {
		return model.Trn{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&t.Quantity, qty}, {&t.Price, px}, {&t.Fees, fees}, {&t.Tax, tax},
		{&t.TradeAmount, amount},
		{&t.TradeCashRate, cashRate}, {&t.TradeBaseRate, baseRate}, {&t.TradePortfolioRate, pfRate},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return model.Trn{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	if cashAmount.Valid {
		ca, err := decimal.NewFromString(cashAmount.String)
		if err != nil {
			return model.Trn{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		t.CashAmount = &ca
	}
	return t, nil
}

func (s *Source) Prices(ctx context.Context, dates []model.Date, assetIDs []string) (map[model.Date]map[string]decimal.Decimal, error) {
	out := make(map[model.Date]map[string]decimal.Decimal)
	if len(dates) == 0 || len(assetIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(assetIDs)+len(dates))
	for _, id := range assetIDs {
		args = append(args, id)
	}
	for _, d := range dates {
		args = append(args, d.String())
	}
	query := fmt.Sprintf(
		`SELECT asset_id, price_date, close FROM prices
		WHERE asset_id IN (%s) AND price_date IN (%s)`,
		placeholders(len(assetIDs)), placeholders(len(dates)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assetID, rawDate, rawClose string
		if err := rows.Scan(&assetID, &rawDate, &rawClose); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("price row %s: %w", assetID, err)
		}
		px, err := decimal.NewFromString(rawClose)
		if err != nil {
			return nil, fmt.Errorf("price row %s %s: %w", assetID, rawDate, err)
		}
		if out[d] == nil {
			out[d] = make(map[string]decimal.Decimal)
		}
		out[d][assetID] = px
	}
	return out, rows.Err()
}

func (s *Source) Rates(ctx context.Context, from, to model.Date, currencies []string) (map[model.Date]map[string]decimal.Decimal, error) {
	out := make(map[model.Date]map[string]decimal.Decimal)
	if len(currencies) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(currencies)+2)
	for _, c := range currencies {
		args = append(args, c)
	}
	args = append(args, from.String(), to.String())
	query := fmt.Sprintf(
		`SELECT currency, rate_date, rate FROM fx_rates
		WHERE currency IN (%s) AND rate_date >= ? AND rate_date <= ?`,
		placeholders(len(currencies)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fx rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var currency, rawDate, rawRate string
		if err := rows.Scan(&currency, &rawDate, &rawRate); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("fx row %s: %w", currency, err)
		}
		rate, err := decimal.NewFromString(rawRate)
		if err != nil {
			return nil, fmt.Errorf("fx row %s %s: %w", currency, rawDate, err)
		}
		if out[d] == nil {
			out[d] = make(map[string]decimal.Decimal)
		}
		out[d][currency] = rate
	}
	return out, rows.Err()
}

func (s *Source) Events(ctx context.Context, assetIDs []string, from, to model.Date) ([]model.CorporateEvent, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(assetIDs)+2)
	for _, id := range assetIDs {
		args = append(args, id)
	}
	args = append(args, from.String(), to.String())
	query := fmt.Sprintf(
		`SELECT id, asset_id, type, record_date, pay_date, rate, jurisdiction, source
		FROM corporate_events
		WHERE asset_id IN (%s) AND record_date >= ? AND record_date <= ?
		ORDER BY record_date, id`,
		placeholders(len(assetIDs)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.CorporateEvent
	for rows.Next() {
		var (
			ev      model.CorporateEvent
			record  string
			pay     sql.NullString
			rawRate string
		)
		if err := rows.Scan(&ev.ID, &ev.AssetID, &ev.Type, &record, &pay, &rawRate, &ev.Jurisdiction, &ev.Source); err != nil {
			return nil, err
		}
		if ev.RecordDate, err = model.ParseDate(record); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if pay.Valid && pay.String != "" {
			if ev.PayDate, err = model.ParseDate(pay.String); err != nil {
				return nil, fmt.Errorf("event %s: %w", ev.ID, err)
			}
		}
		if ev.Rate, err = decimal.NewFromString(rawRate); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Source) Close() error { return s.db.Close() }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var (
	_ port.PortfolioSource   = (*Source)(nil)
	_ port.TransactionSource = (*Source)(nil)
	_ port.PriceSource       = (*Source)(nil)
	_ port.FxSource          = (*Source)(nil)
	_ port.EventSource       = (*Source)(nil)
)
