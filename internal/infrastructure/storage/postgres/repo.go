package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Repo is a postgres-backed SnapshotStore for shared deployments.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  portfolio_id TEXT NOT NULL,
  valuation_date DATE NOT NULL,
  market_value NUMERIC NOT NULL,
  external_cash_flow NUMERIC NOT NULL,
  net_contributions NUMERIC NOT NULL,
  cumulative_dividends NUMERIC NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (portfolio_id, valuation_date)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(valuation_date);
`)
	return err
}

func (r *Repo) Find(ctx context.Context, portfolioID string, dates []model.Date) ([]model.Snapshot, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(dates))
	args := make([]any, 0, len(dates)+1)
	args = append(args, portfolioID)
	for i, d := range dates {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, d.Time())
	}

	query := fmt.Sprintf(`
SELECT portfolio_id, valuation_date, market_value::text, external_cash_flow::text, net_contributions::text, cumulative_dividends::text
FROM snapshots
WHERE portfolio_id = $1 AND valuation_date IN (%s)
ORDER BY valuation_date`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var date time.Time
		var marketValue, externalFlow, contributions, dividends string
		if err := rows.Scan(&snap.PortfolioID, &date, &marketValue, &externalFlow, &contributions, &dividends); err != nil {
			return nil, err
		}
		snap.Date = model.DateOf(date)
		for _, field := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&snap.MarketValue, marketValue},
			{&snap.ExternalCashFlow, externalFlow},
			{&snap.NetContributions, contributions},
			{&snap.CumulativeDividends, dividends},
		} {
			v, err := decimal.NewFromString(field.src)
			if err != nil {
				return nil, fmt.Errorf("corrupt snapshot value %q: %w", field.src, err)
			}
			*field.dst = v
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (r *Repo) Store(ctx context.Context, portfolioID string, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, snap := range snapshots {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO snapshots (portfolio_id, valuation_date, market_value, external_cash_flow, net_contributions, cumulative_dividends, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (portfolio_id, valuation_date) DO UPDATE SET
  market_value = EXCLUDED.market_value,
  external_cash_flow = EXCLUDED.external_cash_flow,
  net_contributions = EXCLUDED.net_contributions,
  cumulative_dividends = EXCLUDED.cumulative_dividends,
  created_at = EXCLUDED.created_at`,
			portfolioID,
			snap.Date.Time(),
			snap.MarketValue.String(),
			snap.ExternalCashFlow.String(),
			snap.NetContributions.String(),
			snap.CumulativeDividends.String(),
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) DeleteFrom(ctx context.Context, portfolioID string, from model.Date) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE portfolio_id = $1 AND valuation_date >= $2`,
		portfolioID, from.Time())
	return err
}

func (r *Repo) DeleteOn(ctx context.Context, date model.Date) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE valuation_date = $1`, date.Time())
	return err
}

func (r *Repo) DeletePortfolio(ctx context.Context, portfolioID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE portfolio_id = $1`, portfolioID)
	return err
}

var _ port.SnapshotStore = (*Repo)(nil)
