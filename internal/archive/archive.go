// Package archive owns the soft-deleted transaction set for one user.
// Entries arrive from the ledger with a deletedAt stamp and leave either by
// restore (back to the ledger) or by permanent purge. Newest-first order,
// full-list persist after each mutation, same as the ledger.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pondo/internal/core"
	"pondo/internal/store"
)

// CategoryAll disables the category restriction in Search.
const CategoryAll = "all"

// Restorer receives transactions leaving the archive. The ledger satisfies
// this.
type Restorer interface {
	Prepend(ctx context.Context, tx core.Transaction) error
}

type Archive struct {
	kv    store.KV
	user  string
	items []core.DeletedTransaction
}

// Load reads the user's archive from the store; an unused namespace yields an
// empty archive.
func Load(ctx context.Context, kv store.KV, user string) (*Archive, error) {
	a := &Archive{kv: kv, user: user}
	raw, ok, err := kv.Get(ctx, store.ArchiveKey(user))
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &a.items); err != nil {
			return nil, fmt.Errorf("decode archive: %w", err)
		}
	}
	return a, nil
}

// Bury prepends a soft-deleted transaction.
func (a *Archive) Bury(ctx context.Context, dt core.DeletedTransaction) error {
	a.items = append([]core.DeletedTransaction{dt}, a.items...)
	return a.persist(ctx)
}

// Restore moves the entry with the given ID back to the ledger, stripping
// deletedAt. An unknown ID is a silent no-op.
func (a *Archive) Restore(ctx context.Context, id int64, dest Restorer) (bool, error) {
	idx := a.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	// Hand back to the ledger before dropping our copy.
	if err := dest.Prepend(ctx, a.items[idx].Transaction); err != nil {
		return false, fmt.Errorf("restore transaction %d: %w", id, err)
	}

	a.items = append(a.items[:idx], a.items[idx+1:]...)
	if err := a.persist(ctx); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Transaction restored", "user", a.user, "id", id)
	return true, nil
}

// Purge permanently removes one entry. An unknown ID is a silent no-op.
func (a *Archive) Purge(ctx context.Context, id int64) (bool, error) {
	idx := a.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	a.items = append(a.items[:idx], a.items[idx+1:]...)
	if err := a.persist(ctx); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "Transaction purged", "user", a.user, "id", id)
	return true, nil
}

// PurgeAll empties the archive. Already empty is a no-op.
func (a *Archive) PurgeAll(ctx context.Context) error {
	if len(a.items) == 0 {
		return nil
	}
	count := len(a.items)
	a.items = nil
	if err := a.persist(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Archive emptied", "user", a.user, "count", count)
	return nil
}

// Search returns entries whose description contains term case-insensitively,
// restricted to category unless it is CategoryAll.
func (a *Archive) Search(term, category string) []core.DeletedTransaction {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []core.DeletedTransaction
	for _, dt := range a.items {
		if term != "" && !strings.Contains(strings.ToLower(dt.Description), term) {
			continue
		}
		if category != CategoryAll && dt.Category != category {
			continue
		}
		out = append(out, dt)
	}
	return out
}

// Expired returns the IDs of entries whose deletedAt is older than the
// retention window at the given instant.
func (a *Archive) Expired(now time.Time, window time.Duration) []int64 {
	cutoff := now.Add(-window)
	var ids []int64
	for _, dt := range a.items {
		if dt.DeletedAt.Before(cutoff) {
			ids = append(ids, dt.ID)
		}
	}
	return ids
}

// Items returns a copy of the archive, newest first.
func (a *Archive) Items() []core.DeletedTransaction {
	out := make([]core.DeletedTransaction, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Archive) Len() int { return len(a.items) }

// User returns the namespace owner.
func (a *Archive) User() string { return a.user }

func (a *Archive) indexOf(id int64) int {
	for i, dt := range a.items {
		if dt.ID == id {
			return i
		}
	}
	return -1
}

func (a *Archive) persist(ctx context.Context) error {
	items := a.items
	if items == nil {
		items = []core.DeletedTransaction{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := a.kv.Set(ctx, store.ArchiveKey(a.user), string(data)); err != nil {
		return fmt.Errorf("persist archive: %w", err)
	}
	return nil
}
