// Package app is the application controller. It owns the session plus the
// logged-in user's ledger, archive and budget tracker, and serializes every
// operation behind one mutex so components below it can stay lock-free.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"pondo/internal/amqp"
	"pondo/internal/archive"
	"pondo/internal/budget"
	"pondo/internal/core"
	"pondo/internal/export"
	"pondo/internal/ledger"
	"pondo/internal/metrics"
	"pondo/internal/session"
	"pondo/internal/store"
)

// ErrNotLoggedIn is returned by operations that need an active session.
var ErrNotLoggedIn = errors.New("not logged in")

const (
	noticeTTL   = 3 * time.Second
	noticeLimit = 8
)

type App struct {
	mu sync.Mutex

	kv         store.KV
	session    *session.Session
	amqpClient *amqp.Client

	user    string
	ledger  *ledger.Ledger
	archive *archive.Archive
	budgets *budget.Tracker

	notices *Notices
}

// New builds the controller. amqpClient may be nil; archive events are then
// skipped.
func New(kv store.KV, amqpClient *amqp.Client) *App {
	return &App{
		kv:         kv,
		session:    session.New(kv),
		amqpClient: amqpClient,
		notices:    NewNotices(noticeTTL, noticeLimit),
	}
}

// Resume restores the persisted session, if any, and opens its namespaces.
func (a *App) Resume(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	name, err := a.session.Current(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	return a.open(ctx, name)
}

// Login starts a session for the trimmed display name and loads its data.
func (a *App) Login(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	name, err := a.session.Login(ctx, name)
	if err != nil {
		return err
	}
	if err := a.open(ctx, name); err != nil {
		return err
	}
	metrics.SessionActive.Set(1)
	a.notices.Push(NoticeSuccess, fmt.Sprintf("Welcome, %s!", name))
	return nil
}

// Logout ends the session. The user's persisted data stays untouched.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.user, a.ledger, a.archive, a.budgets = "", nil, nil, nil
	metrics.SessionActive.Set(0)
	return nil
}

// open loads the user's namespaces. Caller holds the mutex.
func (a *App) open(ctx context.Context, name string) error {
	led, err := ledger.Load(ctx, a.kv, name)
	if err != nil {
		metrics.StoreErrors.Inc()
		return err
	}
	arc, err := archive.Load(ctx, a.kv, name)
	if err != nil {
		metrics.StoreErrors.Inc()
		return err
	}
	a.user, a.ledger, a.archive = name, led, arc
	a.budgets = budget.New(a.kv, name)
	return nil
}

// User returns the logged-in display name, or "".
func (a *App) User() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// LoggedIn reports whether a session is active.
func (a *App) LoggedIn() bool { return a.User() != "" }

// AddTransaction validates and records a new transaction.
func (a *App) AddTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger == nil {
		return core.Transaction{}, ErrNotLoggedIn
	}
	tx, err := a.ledger.Add(ctx, draft)
	if err != nil {
		a.notices.Push(NoticeError, "Could not add transaction")
		return core.Transaction{}, err
	}
	metrics.TransactionsCreated.WithLabelValues(string(tx.Type)).Inc()
	a.notices.Push(NoticeSuccess, "Transaction added")
	return tx, nil
}

// DeleteTransaction moves a transaction to the archive and announces the
// event. An unknown ID is a silent no-op.
func (a *App) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger == nil {
		return false, ErrNotLoggedIn
	}
	moved, err := a.ledger.Delete(ctx, id, a.archive)
	if err != nil {
		a.notices.Push(NoticeError, "Could not delete transaction")
		return false, err
	}
	if moved {
		metrics.TransactionsArchived.Inc()
		a.notices.Push(NoticeSuccess, "Transaction moved to archive")
		a.publishArchiveEvent(ctx, amqp.ActionArchived, id)
	}
	return moved, nil
}

// RestoreTransaction moves an archived transaction back to the ledger.
func (a *App) RestoreTransaction(ctx context.Context, id int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.archive == nil {
		return false, ErrNotLoggedIn
	}
	moved, err := a.archive.Restore(ctx, id, a.ledger)
	if err != nil {
		a.notices.Push(NoticeError, "Could not restore transaction")
		return false, err
	}
	if moved {
		metrics.TransactionsRestored.Inc()
		a.notices.Push(NoticeSuccess, "Transaction restored")
	}
	return moved, nil
}

// PurgeTransaction permanently removes one archive entry.
func (a *App) PurgeTransaction(ctx context.Context, id int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.archive == nil {
		return false, ErrNotLoggedIn
	}
	removed, err := a.archive.Purge(ctx, id)
	if err != nil {
		a.notices.Push(NoticeError, "Could not delete permanently")
		return false, err
	}
	if removed {
		metrics.TransactionsPurged.Inc()
		a.notices.Push(NoticeSuccess, "Transaction permanently deleted")
		a.publishArchiveEvent(ctx, amqp.ActionPurged, id)
	}
	return removed, nil
}

// PurgeArchive empties the archive.
func (a *App) PurgeArchive(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.archive == nil {
		return ErrNotLoggedIn
	}
	count := a.archive.Len()
	if err := a.archive.PurgeAll(ctx); err != nil {
		a.notices.Push(NoticeError, "Could not empty archive")
		return err
	}
	if count > 0 {
		metrics.TransactionsPurged.Add(float64(count))
		a.notices.Push(NoticeSuccess, "Archive emptied")
		a.publishArchiveEvent(ctx, amqp.ActionPurgedAll, 0)
	}
	return nil
}

// Transactions returns the active list filtered by type ("all" for every
// transaction), newest first.
func (a *App) Transactions(filter string) []core.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Filter(filter)
}

// Totals returns income and expense sums over the active ledger.
func (a *App) Totals() core.Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ledger == nil {
		return core.Totals{}
	}
	return a.ledger.Totals()
}

// CategoryTotals returns per-category expense sums.
func (a *App) CategoryTotals() map[string]core.Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ledger == nil {
		return nil
	}
	return a.ledger.CategoryTotals()
}

// SearchArchive filters the archive by description substring and category.
func (a *App) SearchArchive(term, category string) []core.DeletedTransaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.archive == nil {
		return nil
	}
	return a.archive.Search(term, category)
}

// ArchiveItems returns the full archive, newest first.
func (a *App) ArchiveItems() []core.DeletedTransaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.archive == nil {
		return nil
	}
	return a.archive.Items()
}

// SetBudget appends a budget history entry for the category and month.
func (a *App) SetBudget(ctx context.Context, category, monthKey string, amount core.Money) (core.BudgetEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budgets == nil {
		return core.BudgetEntry{}, ErrNotLoggedIn
	}
	entry, err := a.budgets.Set(ctx, category, monthKey, amount)
	if err != nil {
		a.notices.Push(NoticeError, "Could not set budget")
		return core.BudgetEntry{}, err
	}
	metrics.BudgetEntries.Inc()
	a.notices.Push(NoticeSuccess, "Budget updated")
	return entry, nil
}

// BudgetStatus computes spend vs budget for the category and month.
func (a *App) BudgetStatus(ctx context.Context, category, monthKey string) (core.BudgetStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budgets == nil {
		return core.BudgetStatus{}, ErrNotLoggedIn
	}
	return a.budgets.Status(ctx, category, monthKey, a.ledger.Items())
}

// BudgetHistory returns the month's history in append order.
func (a *App) BudgetHistory(ctx context.Context, monthKey string) ([]core.BudgetEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budgets == nil {
		return nil, ErrNotLoggedIn
	}
	return a.budgets.History(ctx, monthKey)
}

// RemoveBudgetEntry deletes one history row.
func (a *App) RemoveBudgetEntry(ctx context.Context, monthKey string, entryID int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budgets == nil {
		return false, ErrNotLoggedIn
	}
	removed, err := a.budgets.RemoveEntry(ctx, monthKey, entryID)
	if err != nil {
		a.notices.Push(NoticeError, "Could not remove budget entry")
		return false, err
	}
	if removed {
		a.notices.Push(NoticeSuccess, "Budget entry removed")
	}
	return removed, nil
}

// ClearBudgetCategory removes every history row for the category in the month.
func (a *App) ClearBudgetCategory(ctx context.Context, category, monthKey string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budgets == nil {
		return 0, ErrNotLoggedIn
	}
	removed, err := a.budgets.ClearCategory(ctx, category, monthKey)
	if err != nil {
		a.notices.Push(NoticeError, "Could not clear budget")
		return 0, err
	}
	if removed > 0 {
		a.notices.Push(NoticeSuccess, "Budget cleared")
	}
	return removed, nil
}

// Theme returns the stored theme.
func (a *App) Theme(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Theme(ctx)
}

// ToggleTheme flips the theme and returns the new value.
func (a *App) ToggleTheme(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ToggleTheme(ctx)
}

// ExportCSV writes the active ledger as a CSV report and returns the
// suggested download name.
func (a *App) ExportCSV(w io.Writer) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger == nil {
		return "", ErrNotLoggedIn
	}
	if err := export.WriteCSV(w, a.ledger.Items()); err != nil {
		a.notices.Push(NoticeError, "Could not export report")
		return "", err
	}
	a.notices.Push(NoticeSuccess, "Report exported")
	return export.FileName(a.user), nil
}

// Notices returns the notification center.
func (a *App) Notices() *Notices { return a.notices }

// publishArchiveEvent is fire and forget; the worker's periodic sweep covers
// missed events. Caller holds the mutex.
func (a *App) publishArchiveEvent(ctx context.Context, action string, id int64) {
	if a.amqpClient == nil {
		return
	}
	if err := a.amqpClient.PublishArchiveEvent(ctx, action, a.user, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish archive event",
			"action", action, "id", id, "error", err)
	}
}

// Close releases the store and the AMQP connection.
func (a *App) Close() error {
	var errs []error
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if a.amqpClient != nil {
		if err := a.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close app: %v", errs)
	}
	return nil
}
