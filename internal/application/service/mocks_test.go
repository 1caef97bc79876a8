package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

// mockStore is an in-memory SnapshotStore with switchable failure modes.
type mockStore struct {
	mu        sync.Mutex
	rows      map[string]map[model.Date]model.Snapshot
	failFind  bool
	failStore bool
	finds     int
	stores    int
}

func newMockStore() *mockStore {
	return &mockStore{rows: map[string]map[model.Date]model.Snapshot{}}
}

func (m *mockStore) Find(ctx context.Context, portfolioID string, dates []model.Date) ([]model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.failFind {
		return nil, errors.New("store unavailable")
	}
	var out []model.Snapshot
	for _, d := range dates {
		if snap, ok := m.rows[portfolioID][d]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *mockStore) Store(ctx context.Context, portfolioID string, snapshots []model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores++
	if m.failStore {
		return errors.New("store unavailable")
	}
	if m.rows[portfolioID] == nil {
		m.rows[portfolioID] = map[model.Date]model.Snapshot{}
	}
	for _, snap := range snapshots {
		m.rows[portfolioID][snap.Date] = snap
	}
	return nil
}

func (m *mockStore) DeleteFrom(ctx context.Context, portfolioID string, from model.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for d := range m.rows[portfolioID] {
		if !d.Before(from) {
			delete(m.rows[portfolioID], d)
		}
	}
	return nil
}

func (m *mockStore) DeleteOn(ctx context.Context, date model.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, byDate := range m.rows {
		delete(byDate, date)
	}
	return nil
}

func (m *mockStore) DeletePortfolio(ctx context.Context, portfolioID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, portfolioID)
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) count(portfolioID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[portfolioID])
}

type mockPortfolios struct {
	list  []model.Portfolio
	calls int
}

func (m *mockPortfolios) Portfolio(ctx context.Context, id string) (model.Portfolio, error) {
	m.calls++
	for _, pf := range m.list {
		if pf.ID == id {
			return pf, nil
		}
	}
	return model.Portfolio{}, errors.New("portfolio not found: " + id)
}

func (m *mockPortfolios) Portfolios(ctx context.Context) ([]model.Portfolio, error) {
	return m.list, nil
}

type mockTransactions struct {
	trns  map[string][]model.Trn
	calls int
}

func (m *mockTransactions) Transactions(ctx context.Context, portfolioID string, asOf model.Date) ([]model.Trn, error) {
	m.calls++
	var out []model.Trn
	for _, t := range m.trns[portfolioID] {
		if !t.TradeDate.After(asOf) {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockPrices struct {
	// prices[assetID][date] = closing price
	prices map[string]map[model.Date]decimal.Decimal
	calls  int
}

func (m *mockPrices) Prices(ctx context.Context, dates []model.Date, assetIDs []string) (map[model.Date]map[string]decimal.Decimal, error) {
	m.calls++
	out := map[model.Date]map[string]decimal.Decimal{}
	for _, d := range dates {
		for _, id := range assetIDs {
			if p, ok := m.prices[id][d]; ok {
				if out[d] == nil {
					out[d] = map[string]decimal.Decimal{}
				}
				out[d][id] = p
			}
		}
	}
	return out, nil
}

type mockFx struct {
	// rates[currency] = rate to base, constant across dates
	rates map[string]decimal.Decimal
	calls int
}

func (m *mockFx) Rates(ctx context.Context, from, to model.Date, currencies []string) (map[model.Date]map[string]decimal.Decimal, error) {
	m.calls++
	out := map[model.Date]map[string]decimal.Decimal{}
	for d := from; !d.After(to); d = d.AddDays(1) {
		out[d] = m.rates
	}
	return out, nil
}

type mockEvents struct {
	events []model.CorporateEvent
}

func (m *mockEvents) Events(ctx context.Context, assetIDs []string, from, to model.Date) ([]model.CorporateEvent, error) {
	return m.events, nil
}
