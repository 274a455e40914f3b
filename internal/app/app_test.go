package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pondo/internal/core"
	"pondo/internal/store/memory"
)

func newApp(t *testing.T) *App {
	t.Helper()
	return New(memory.New(), nil)
}

func login(t *testing.T, a *App, name string) {
	t.Helper()
	if err := a.Login(context.Background(), name); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func expense(category, desc string, cents int64) core.Transaction {
	return core.Transaction{
		Type:        core.Expense,
		Category:    category,
		Amount:      core.Money{Cents: cents},
		Date:        core.NewDate(2025, 3, 10),
		Description: desc,
	}
}

func TestOperationsRequireSession(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	if _, err := a.AddTransaction(ctx, expense("food", "lunch", 1000)); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("AddTransaction err = %v, want ErrNotLoggedIn", err)
	}
	if _, err := a.DeleteTransaction(ctx, 1); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("DeleteTransaction err = %v, want ErrNotLoggedIn", err)
	}
	if _, err := a.SetBudget(ctx, "food", "2025-03", core.Money{Cents: 100}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("SetBudget err = %v, want ErrNotLoggedIn", err)
	}
	if _, err := a.ExportCSV(&strings.Builder{}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("ExportCSV err = %v, want ErrNotLoggedIn", err)
	}
}

func TestLoginTrimsAndResumes(t *testing.T) {
	kv := memory.New()
	a := New(kv, nil)
	ctx := context.Background()

	if err := a.Login(ctx, "  Mica  "); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if a.User() != "Mica" {
		t.Fatalf("User = %q", a.User())
	}
	if _, err := a.AddTransaction(ctx, expense("food", "lunch", 1000)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	// A fresh controller over the same store resumes the session and data.
	b := New(kv, nil)
	if err := b.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if b.User() != "Mica" {
		t.Fatalf("resumed user = %q", b.User())
	}
	if got := len(b.Transactions("all")); got != 1 {
		t.Fatalf("resumed transactions = %d, want 1", got)
	}
}

func TestLoginRejectsBlankName(t *testing.T) {
	a := newApp(t)
	if err := a.Login(context.Background(), "   "); !errors.Is(err, core.ErrEmptyUserName) {
		t.Fatalf("err = %v, want ErrEmptyUserName", err)
	}
}

func TestLogoutKeepsData(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	login(t, a, "mica")
	if _, err := a.AddTransaction(ctx, expense("food", "lunch", 1000)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := a.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if a.LoggedIn() {
		t.Fatal("still logged in after Logout")
	}
	if a.Transactions("all") != nil {
		t.Fatal("transactions visible while logged out")
	}

	login(t, a, "mica")
	if got := len(a.Transactions("all")); got != 1 {
		t.Fatalf("transactions after re-login = %d, want 1", got)
	}
}

func TestDeleteRestorePurgeFlow(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	login(t, a, "mica")

	tx, err := a.AddTransaction(ctx, expense("food", "groceries", 4550))
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	moved, err := a.DeleteTransaction(ctx, tx.ID)
	if err != nil || !moved {
		t.Fatalf("DeleteTransaction = (%v, %v)", moved, err)
	}
	if len(a.Transactions("all")) != 0 || len(a.ArchiveItems()) != 1 {
		t.Fatal("transaction not moved to archive")
	}

	moved, err = a.RestoreTransaction(ctx, tx.ID)
	if err != nil || !moved {
		t.Fatalf("RestoreTransaction = (%v, %v)", moved, err)
	}
	if len(a.Transactions("all")) != 1 || len(a.ArchiveItems()) != 0 {
		t.Fatal("transaction not restored")
	}

	if _, err := a.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	removed, err := a.PurgeTransaction(ctx, tx.ID)
	if err != nil || !removed {
		t.Fatalf("PurgeTransaction = (%v, %v)", removed, err)
	}
	if len(a.ArchiveItems()) != 0 {
		t.Fatal("archive not empty after purge")
	}

	// Unknown IDs are silent no-ops.
	if moved, err := a.DeleteTransaction(ctx, 999); err != nil || moved {
		t.Fatalf("unknown delete = (%v, %v)", moved, err)
	}
}

func TestPurgeArchive(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	login(t, a, "mica")

	for _, desc := range []string{"one", "two"} {
		tx, err := a.AddTransaction(ctx, expense("food", desc, 100))
		if err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
		if _, err := a.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
	}

	if err := a.PurgeArchive(ctx); err != nil {
		t.Fatalf("PurgeArchive: %v", err)
	}
	if len(a.ArchiveItems()) != 0 {
		t.Fatal("archive not empty")
	}
	// Idempotent on an already empty archive.
	if err := a.PurgeArchive(ctx); err != nil {
		t.Fatalf("second PurgeArchive: %v", err)
	}
}

func TestBudgetThroughController(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	login(t, a, "mica")

	if _, err := a.AddTransaction(ctx, expense("food", "lunch", 10000)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if _, err := a.SetBudget(ctx, "food", "2025-03", core.Money{Cents: 50000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	status, err := a.BudgetStatus(ctx, "food", "2025-03")
	if err != nil {
		t.Fatalf("BudgetStatus: %v", err)
	}
	if status.Spent.Cents != 10000 || status.Budget.Cents != 50000 || status.UsagePercent != 20 {
		t.Fatalf("status = %+v", status)
	}

	history, err := a.BudgetHistory(ctx, "2025-03")
	if err != nil || len(history) != 1 {
		t.Fatalf("history = %v (err=%v)", history, err)
	}
	if removed, err := a.ClearBudgetCategory(ctx, "food", "2025-03"); err != nil || removed != 1 {
		t.Fatalf("ClearBudgetCategory = (%d, %v)", removed, err)
	}
}

func TestExportCSVThroughController(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	login(t, a, "Mica")
	if _, err := a.AddTransaction(ctx, expense("food", "lunch", 1050)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	var sb strings.Builder
	name, err := a.ExportCSV(&sb)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if name != "Finance_Report_Mica.csv" {
		t.Fatalf("file name = %q", name)
	}
	if !strings.Contains(sb.String(), "10.50") {
		t.Fatalf("amount missing from export:\n%s", sb.String())
	}
}

func TestNoticesExpireAndDismiss(t *testing.T) {
	n := NewNotices(20*time.Millisecond, 3)

	kept := n.Push(NoticeSuccess, "kept")
	if got := len(n.Active()); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}

	// Explicit dismiss before expiry; the later timer fires on a gone ID.
	if !n.Dismiss(kept.ID) {
		t.Fatal("Dismiss returned false for existing notice")
	}
	if n.Dismiss(kept.ID) {
		t.Fatal("second Dismiss should be a no-op")
	}

	n.Push(NoticeError, "fading")
	deadline := time.Now().Add(time.Second)
	for len(n.Active()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("notice did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNoticesBounded(t *testing.T) {
	n := NewNotices(0, 2)
	n.Push(NoticeSuccess, "a")
	n.Push(NoticeSuccess, "b")
	n.Push(NoticeSuccess, "c")

	active := n.Active()
	if len(active) != 2 || active[0].Message != "b" || active[1].Message != "c" {
		t.Fatalf("active = %+v", active)
	}
}
