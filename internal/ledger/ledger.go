// Package ledger owns the active transaction list for one user and its
// derived aggregates. The list is kept newest-first, which is both the
// display and the persisted order. Every committed mutation persists the
// full list inline.
//
// A Ledger is not safe for concurrent use; the application controller
// serializes access.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pondo/internal/core"
	"pondo/internal/store"
)

// FilterAll selects every transaction regardless of type.
const FilterAll = "all"

// Archiver receives transactions removed from the active ledger. The archive
// satisfies this.
type Archiver interface {
	Bury(ctx context.Context, dt core.DeletedTransaction) error
}

type Ledger struct {
	kv    store.KV
	user  string
	items []core.Transaction
}

// Load reads the user's active ledger from the store. A namespace that has
// never been used yields an empty ledger.
func Load(ctx context.Context, kv store.KV, user string) (*Ledger, error) {
	l := &Ledger{kv: kv, user: user}
	raw, ok, err := kv.Get(ctx, store.TransactionsKey(user))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &l.items); err != nil {
			return nil, fmt.Errorf("decode ledger: %w", err)
		}
	}
	return l, nil
}

// Add validates the draft, assigns it a fresh ID, and prepends it to the
// active list. The draft's ID field is ignored. On validation failure no
// state changes.
func (l *Ledger) Add(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	draft.ID = core.NextID()
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.items = append([]core.Transaction{draft}, l.items...)
	if err := l.persist(ctx); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction added",
		"user", l.user,
		"id", draft.ID,
		"type", draft.Type,
		"category", draft.Category,
		"amount_cents", draft.Amount.Cents)
	return draft, nil
}

// Prepend puts an already-valid transaction back at the head of the list,
// preserving its ID. Used when restoring from the archive.
func (l *Ledger) Prepend(ctx context.Context, tx core.Transaction) error {
	l.items = append([]core.Transaction{tx}, l.items...)
	return l.persist(ctx)
}

// Delete moves the transaction with the given ID to the archive, stamping
// deletedAt with the current time. An unknown ID is a silent no-op.
func (l *Ledger) Delete(ctx context.Context, id int64, arc Archiver) (bool, error) {
	idx := -1
	for i, tx := range l.items {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	// Bury first so a storage failure cannot lose the transaction.
	if err := arc.Bury(ctx, l.items[idx].Deleted(time.Now())); err != nil {
		return false, fmt.Errorf("archive transaction %d: %w", id, err)
	}

	l.items = append(l.items[:idx], l.items[idx+1:]...)
	if err := l.persist(ctx); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Transaction archived", "user", l.user, "id", id)
	return true, nil
}

// Totals sums amounts over active transactions grouped by type.
func (l *Ledger) Totals() core.Totals {
	var t core.Totals
	for _, tx := range l.items {
		if tx.Type == core.Income {
			t.Income.Cents += tx.Amount.Cents
		} else {
			t.Expense.Cents += tx.Amount.Cents
		}
	}
	return t
}

// CategoryTotals sums expense amounts per category. Categories with no spend
// are absent from the result.
func (l *Ledger) CategoryTotals() map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, tx := range l.items {
		if tx.Type != core.Expense {
			continue
		}
		m := totals[tx.Category]
		m.Cents += tx.Amount.Cents
		totals[tx.Category] = m
	}
	return totals
}

// Filter returns transactions of the given type, or every transaction for
// FilterAll, preserving newest-first order.
func (l *Ledger) Filter(filter string) []core.Transaction {
	if filter == FilterAll {
		return l.Items()
	}
	var out []core.Transaction
	for _, tx := range l.items {
		if string(tx.Type) == filter {
			out = append(out, tx)
		}
	}
	return out
}

// Items returns a copy of the active list, newest first.
func (l *Ledger) Items() []core.Transaction {
	out := make([]core.Transaction, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Ledger) Len() int { return len(l.items) }

// User returns the namespace owner.
func (l *Ledger) User() string { return l.user }

func (l *Ledger) persist(ctx context.Context) error {
	items := l.items
	if items == nil {
		items = []core.Transaction{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.kv.Set(ctx, store.TransactionsKey(l.user), string(data)); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
