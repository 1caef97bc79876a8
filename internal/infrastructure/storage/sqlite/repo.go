package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Repo is a sqlite-backed SnapshotStore. Decimals are stored as text to
// keep them exact.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  valuation_date TEXT NOT NULL,
  market_value TEXT NOT NULL,
  external_cash_flow TEXT NOT NULL,
  net_contributions TEXT NOT NULL,
  cumulative_dividends TEXT NOT NULL,
  created_at INTEGER NOT NULL,
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
		placeholders[i] = "?"
		args = append(args, d.String())
	}

	query := fmt.Sprintf(`
SELECT portfolio_id, valuation_date, market_value, external_cash_flow, net_contributions, cumulative_dividends
FROM snapshots
WHERE portfolio_id = ? AND valuation_date IN (%s)
ORDER BY valuation_date`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
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

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO snapshots (portfolio_id, valuation_date, market_value, external_cash_flow, net_contributions, cumulative_dividends, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (portfolio_id, valuation_date) DO UPDATE SET
  market_value = excluded.market_value,
  external_cash_flow = excluded.external_cash_flow,
  net_contributions = excluded.net_contributions,
  cumulative_dividends = excluded.cumulative_dividends,
  created_at = excluded.created_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, snap := range snapshots {
		if _, err := stmt.ExecContext(ctx,
			portfolioID,
			snap.Date.String(),
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
		`DELETE FROM snapshots WHERE portfolio_id = ? AND valuation_date >= ?`,
		portfolioID, from.String())
	return err
}

func (r *Repo) DeleteOn(ctx context.Context, date model.Date) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE valuation_date = ?`, date.String())
	return err
}

func (r *Repo) DeletePortfolio(ctx context.Context, portfolioID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE portfolio_id = ?`, portfolioID)
	return err
}

func scanSnapshot(rows *sql.Rows) (model.Snapshot, error) {
	var snap model.Snapshot
	var date, marketValue, externalFlow, contributions, dividends string
	if err := rows.Scan(&snap.PortfolioID, &date, &marketValue, &externalFlow, &contributions, &dividends); err != nil {
		return model.Snapshot{}, err
	}
	parsed, err := model.ParseDate(date)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.Date = parsed
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
			return model.Snapshot{}, fmt.Errorf("corrupt snapshot value %q: %w", field.src, err)
		}
		*field.dst = v
	}
	return snap, nil
}

var _ port.SnapshotStore = (*Repo)(nil)
