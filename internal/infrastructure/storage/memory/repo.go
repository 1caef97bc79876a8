package memory

import (
	"context"
	"sync"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Repo is an in-memory SnapshotStore for tests and cache-less runs.
type Repo struct {
	mu   sync.RWMutex
	rows map[string]map[model.Date]model.Snapshot
}

func New() *Repo {
	return &Repo{rows: map[string]map[model.Date]model.Snapshot{}}
}

func (r *Repo) Find(ctx context.Context, portfolioID string, dates []model.Date) ([]model.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Snapshot
	for _, d := range dates {
		if snap, ok := r.rows[portfolioID][d]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (r *Repo) Store(ctx context.Context, portfolioID string, snapshots []model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[portfolioID] == nil {
		r.rows[portfolioID] = map[model.Date]model.Snapshot{}
	}
	for _, snap := range snapshots {
		r.rows[portfolioID][snap.Date] = snap
	}
	return nil
}

func (r *Repo) DeleteFrom(ctx context.Context, portfolioID string, from model.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for d := range r.rows[portfolioID] {
		if !d.Before(from) {
			delete(r.rows[portfolioID], d)
		}
	}
	return nil
}

func (r *Repo) DeleteOn(ctx context.Context, date model.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, byDate := range r.rows {
		delete(byDate, date)
	}
	return nil
}

func (r *Repo) DeletePortfolio(ctx context.Context, portfolioID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, portfolioID)
	return nil
}

func (r *Repo) Close() error { return nil }

var _ port.SnapshotStore = (*Repo)(nil)
