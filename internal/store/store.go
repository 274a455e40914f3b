// Package store abstracts the synchronous string-keyed persistence layer.
// Components serialize their state as JSON and write it under namespace keys
// derived from the logged-in user name.
package store

import "context"

// KV is the opaque key-value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value for key. The bool reports whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, creating or replacing it.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Well-known keys and namespace prefixes of the persisted layout.
const (
	KeyUserName = "userName"
	KeyTheme    = "theme"

	TransactionsPrefix = "transactions_"
	ArchivePrefix      = "deletedTransactions_"
	BudgetPrefix       = "budget_history_"
)

// TransactionsKey is the active ledger namespace for a user.
func TransactionsKey(user string) string {
	return TransactionsPrefix + user
}

// ArchiveKey is the soft-delete namespace for a user.
func ArchiveKey(user string) string {
	return ArchivePrefix + user
}

// BudgetKey is the per-user budget history bucket for a "YYYY-MM" month.
func BudgetKey(user, monthKey string) string {
	return BudgetPrefix + user + "_" + monthKey
}

// LegacyBudgetKey is the un-namespaced bucket older revisions wrote. It is
// read as a fallback only, never written.
func LegacyBudgetKey(monthKey string) string {
	return BudgetPrefix + monthKey
}
