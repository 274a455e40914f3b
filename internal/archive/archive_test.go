package archive

import (
	"context"
	"testing"
	"time"

	"pondo/internal/core"
	"pondo/internal/store/memory"
)

func deleted(id int64, category, desc string, deletedAt time.Time) core.DeletedTransaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Category:    category,
		Amount:      core.Money{Cents: 1000},
		Date:        core.NewDate(2025, 1, 5),
		Description: desc,
	}.Deleted(deletedAt)
}

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Load(context.Background(), memory.New(), "mica")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return a
}

func TestBuryAndReload(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	a, _ := Load(ctx, kv, "mica")

	now := time.Now()
	if err := a.Bury(ctx, deleted(1, "food", "lunch", now)); err != nil {
		t.Fatalf("Bury: %v", err)
	}
	if err := a.Bury(ctx, deleted(2, "shopping", "socks", now)); err != nil {
		t.Fatalf("Bury: %v", err)
	}

	reloaded, err := Load(ctx, kv, "mica")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	items := reloaded.Items()
	if len(items) != 2 || items[0].ID != 2 || items[1].ID != 1 {
		t.Fatalf("expected newest first after reload, got %+v", items)
	}
	if items[0].DeletedAt.IsZero() {
		t.Fatal("deletedAt lost in round trip")
	}
}

func TestPurgeIdempotence(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	_ = a.Bury(ctx, deleted(1, "food", "lunch", time.Now()))

	removed, err := a.Purge(ctx, 1)
	if err != nil || !removed {
		t.Fatalf("Purge = (%v, %v)", removed, err)
	}
	removed, err = a.Purge(ctx, 1)
	if err != nil {
		t.Fatalf("second Purge: %v", err)
	}
	if removed {
		t.Fatal("purging a gone id must be a no-op")
	}
}

func TestPurgeAllOnEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	a, _ := Load(ctx, kv, "mica")

	if err := a.PurgeAll(ctx); err != nil {
		t.Fatalf("PurgeAll on empty: %v", err)
	}
	if kv.Len() != 0 {
		t.Fatal("empty purge must not write")
	}

	_ = a.Bury(ctx, deleted(1, "food", "a", time.Now()))
	_ = a.Bury(ctx, deleted(2, "food", "b", time.Now()))
	if err := a.PurgeAll(ctx); err != nil {
		t.Fatalf("PurgeAll: %v", err)
	}
	if a.Len() != 0 {
		t.Fatalf("archive not emptied, len=%d", a.Len())
	}
}

func TestRestoreUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	restored, err := a.Restore(ctx, 99, restorerFunc(func(context.Context, core.Transaction) error {
		t.Fatal("restorer must not be called for unknown id")
		return nil
	}))
	if err != nil || restored {
		t.Fatalf("Restore = (%v, %v)", restored, err)
	}
}

type restorerFunc func(context.Context, core.Transaction) error

func (f restorerFunc) Prepend(ctx context.Context, tx core.Transaction) error { return f(ctx, tx) }

func TestSearch(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	now := time.Now()
	_ = a.Bury(ctx, deleted(1, "food", "Lunch at the corner", now))
	_ = a.Bury(ctx, deleted(2, "shopping", "lunchbox", now))
	_ = a.Bury(ctx, deleted(3, "food", "groceries", now))

	cases := []struct {
		term, category string
		wantIDs        []int64
	}{
		{"lunch", CategoryAll, []int64{2, 1}},
		{"LUNCH", "food", []int64{1}},
		{"", "food", []int64{3, 1}},
		{"", CategoryAll, []int64{3, 2, 1}},
		{"pizza", CategoryAll, nil},
	}
	for _, tc := range cases {
		got := a.Search(tc.term, tc.category)
		if len(got) != len(tc.wantIDs) {
			t.Fatalf("Search(%q, %q) = %+v, want ids %v", tc.term, tc.category, got, tc.wantIDs)
		}
		for i, dt := range got {
			if dt.ID != tc.wantIDs[i] {
				t.Fatalf("Search(%q, %q)[%d] = id %d, want %d", tc.term, tc.category, i, dt.ID, tc.wantIDs[i])
			}
		}
	}
}

func TestExpired(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_ = a.Bury(ctx, deleted(1, "food", "old", now.Add(-31*24*time.Hour)))
	_ = a.Bury(ctx, deleted(2, "food", "fresh", now.Add(-24*time.Hour)))

	ids := a.Expired(now, 30*24*time.Hour)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("Expired = %v", ids)
	}
	if ids := a.Expired(now, 0); len(ids) != 2 {
		t.Fatalf("zero window should expire everything, got %v", ids)
	}
}
