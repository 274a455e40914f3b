// Package budget owns the append-only budget history and the derived
// spend-vs-budget status. History is bucketed per user and month; rows are
// never overwritten, so the full audit trail survives. The effective budget
// for a category is resolved by a latest-wins reduction over the bucket, not
// by array position.
package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"pondo/internal/core"
	"pondo/internal/store"
)

type Tracker struct {
	kv   store.KV
	user string
	now  func() time.Time
}

func New(kv store.KV, user string) *Tracker {
	return &Tracker{kv: kv, user: user, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Set appends a new history entry for the category in the given "YYYY-MM"
// month. Prior entries are never mutated.
func (t *Tracker) Set(ctx context.Context, category, monthKey string, amount core.Money) (core.BudgetEntry, error) {
	if !core.ValidMonthKey(monthKey) {
		return core.BudgetEntry{}, core.ErrInvalidDate
	}
	now := t.now()
	entry := core.BudgetEntry{
		ID:        core.NextID(),
		Category:  category,
		Amount:    amount,
		Date:      core.DateOf(now),
		Timestamp: now.Format(core.TimestampLayout),
	}
	if err := entry.Validate(); err != nil {
		return core.BudgetEntry{}, err
	}

	history, err := t.History(ctx, monthKey)
	if err != nil {
		return core.BudgetEntry{}, err
	}
	history = append(history, entry)
	if err := t.persist(ctx, monthKey, history); err != nil {
		return core.BudgetEntry{}, err
	}

	slog.InfoContext(ctx, "Budget entry added",
		"user", t.user,
		"month", monthKey,
		"category", category,
		"amount_cents", amount.Cents)
	return entry, nil
}

// Effective returns the currently applicable budget for the category in the
// month: the entry with the greatest (date, timestamp) pair, later-appended
// rows winning exact ties. Zero when no entry exists.
func (t *Tracker) Effective(ctx context.Context, category, monthKey string) (core.Money, error) {
	history, err := t.History(ctx, monthKey)
	if err != nil {
		return core.Money{}, err
	}
	var (
		best  core.Money
		found bool
		bestD string
		bestT string
	)
	for _, e := range history {
		if e.Category != category {
			continue
		}
		d := e.Date.String()
		if !found || d > bestD || (d == bestD && e.Timestamp >= bestT) {
			best, bestD, bestT, found = e.Amount, d, e.Timestamp, true
		}
	}
	return best, nil
}

// Spend sums expense transactions of the category whose date falls in the
// month. The snapshot is the caller's view of the active ledger.
func Spend(category, monthKey string, snapshot []core.Transaction) core.Money {
	var spent core.Money
	for _, tx := range snapshot {
		if tx.Type == core.Expense && tx.Category == category && tx.Date.InMonth(monthKey) {
			spent.Cents += tx.Amount.Cents
		}
	}
	return spent
}

// Status computes the full spend-vs-budget picture for the category/month.
func (t *Tracker) Status(ctx context.Context, category, monthKey string, snapshot []core.Transaction) (core.BudgetStatus, error) {
	budget, err := t.Effective(ctx, category, monthKey)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	spent := Spend(category, monthKey, snapshot)
	status := core.BudgetStatus{
		Spent:     spent,
		Budget:    budget,
		Remaining: core.Money{Cents: budget.Cents - spent.Cents},
	}
	if budget.Cents > 0 {
		status.UsagePercent = int(math.Round(100 * float64(spent.Cents) / float64(budget.Cents)))
	}
	status.OverBudget = status.Remaining.Cents < 0
	return status, nil
}

// RemoveEntry deletes one history row by ID. Unknown IDs are a silent no-op.
// The effective budget recomputes from the remaining rows.
func (t *Tracker) RemoveEntry(ctx context.Context, monthKey string, entryID int64) (bool, error) {
	history, err := t.History(ctx, monthKey)
	if err != nil {
		return false, err
	}
	idx := -1
	for i, e := range history {
		if e.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	history = append(history[:idx], history[idx+1:]...)
	if err := t.persist(ctx, monthKey, history); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "Budget entry removed", "user", t.user, "month", monthKey, "entry_id", entryID)
	return true, nil
}

// ClearCategory deletes every history row for the category in the month and
// returns how many were removed.
func (t *Tracker) ClearCategory(ctx context.Context, category, monthKey string) (int, error) {
	history, err := t.History(ctx, monthKey)
	if err != nil {
		return 0, err
	}
	kept := history[:0]
	removed := 0
	for _, e := range history {
		if e.Category == category {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := t.persist(ctx, monthKey, kept); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Budget category cleared", "user", t.user, "month", monthKey, "category", category, "removed", removed)
	return removed, nil
}

// History returns the month's bucket in append order. Buckets written by
// older revisions without the user namespace are read as a fallback.
func (t *Tracker) History(ctx context.Context, monthKey string) ([]core.BudgetEntry, error) {
	raw, ok, err := t.kv.Get(ctx, store.BudgetKey(t.user, monthKey))
	if err != nil {
		return nil, fmt.Errorf("load budget history: %w", err)
	}
	if !ok {
		raw, ok, err = t.kv.Get(ctx, store.LegacyBudgetKey(monthKey))
		if err != nil {
			return nil, fmt.Errorf("load legacy budget history: %w", err)
		}
	}
	if !ok {
		return nil, nil
	}
	var history []core.BudgetEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode budget history: %w", err)
	}
	return history, nil
}

func (t *Tracker) persist(ctx context.Context, monthKey string, history []core.BudgetEntry) error {
	if history == nil {
		history = []core.BudgetEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode budget history: %w", err)
	}
	if err := t.kv.Set(ctx, store.BudgetKey(t.user, monthKey), string(data)); err != nil {
		return fmt.Errorf("persist budget history: %w", err)
	}
	return nil
}
