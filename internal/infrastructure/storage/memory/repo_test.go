package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"folio/internal/domain/model"
)

func snap(pf string, d model.Date, mv int64) model.Snapshot {
	return model.Snapshot{
		PortfolioID: pf,
		Date:        d,
		MarketValue: decimal.NewFromInt(mv),
	}
}

func TestStoreAndFind(t *testing.T) {
	repo := New()
	ctx := context.Background()
	d1 := model.NewDate(2025, 1, 1)
	d2 := model.NewDate(2025, 1, 2)

	if err := repo.Store(ctx, "pf-1", []model.Snapshot{snap("pf-1", d1, 100), snap("pf-1", d2, 110)}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Find(ctx, "pf-1", []model.Date{d1, d2, model.NewDate(2025, 1, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("found %d snapshots, want 2", len(got))
	}
}

func TestDeleteFromKeepsEarlierDates(t *testing.T) {
	repo := New()
	ctx := context.Background()
	var dates []model.Date
	var snaps []model.Snapshot
	for i := 1; i <= 10; i++ {
		d := model.NewDate(2025, 1, i)
		dates = append(dates, d)
		snaps = append(snaps, snap("pf-1", d, int64(100+i)))
	}
	if err := repo.Store(ctx, "pf-1", snaps); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteFrom(ctx, "pf-1", model.NewDate(2025, 1, 6)); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.Find(ctx, "pf-1", dates)
	if len(got) != 5 {
		t.Fatalf("%d snapshots survive, want 5", len(got))
	}
	for _, s := range got {
		if !s.Date.Before(model.NewDate(2025, 1, 6)) {
			t.Errorf("date %s should have been deleted", s.Date)
		}
	}
}

func TestDeleteOnIsCrossPortfolio(t *testing.T) {
	repo := New()
	ctx := context.Background()
	d := model.NewDate(2025, 3, 15)
	for _, pf := range []string{"pf-1", "pf-2"} {
		if err := repo.Store(ctx, pf, []model.Snapshot{snap(pf, d, 100), snap(pf, d.AddDays(1), 101)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.DeleteOn(ctx, d); err != nil {
		t.Fatal(err)
	}
	for _, pf := range []string{"pf-1", "pf-2"} {
		got, _ := repo.Find(ctx, pf, []model.Date{d, d.AddDays(1)})
		if len(got) != 1 || got[0].Date != d.AddDays(1) {
			t.Errorf("%s: got %v, want only the day after", pf, got)
		}
	}
}

func TestDeletePortfolio(t *testing.T) {
	repo := New()
	ctx := context.Background()
	d := model.NewDate(2025, 5, 1)
	_ = repo.Store(ctx, "pf-1", []model.Snapshot{snap("pf-1", d, 100)})
	_ = repo.Store(ctx, "pf-2", []model.Snapshot{snap("pf-2", d, 200)})

	if err := repo.DeletePortfolio(ctx, "pf-1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Find(ctx, "pf-1", []model.Date{d}); len(got) != 0 {
		t.Errorf("pf-1 still has %d snapshots", len(got))
	}
	if got, _ := repo.Find(ctx, "pf-2", []model.Date{d}); len(got) != 1 {
		t.Errorf("pf-2 lost its snapshot")
	}
}

func TestConcurrentStoreAndFind(t *testing.T) {
	repo := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := model.NewDate(2025, 1, 1+i)
			_ = repo.Store(ctx, "pf-1", []model.Snapshot{snap("pf-1", d, int64(i))})
			_, _ = repo.Find(ctx, "pf-1", []model.Date{d})
		}(i)
	}
	wg.Wait()

	var dates []model.Date
	for i := 0; i < 8; i++ {
		dates = append(dates, model.NewDate(2025, 1, 1+i))
	}
	got, _ := repo.Find(ctx, "pf-1", dates)
	if len(got) != 8 {
		t.Fatalf("found %d snapshots, want 8", len(got))
	}
}
