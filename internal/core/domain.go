package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is an active ledger entry. IDs are creation timestamps in
	// Unix milliseconds, strictly monotonic within a process.
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
	}

	// DeletedTransaction is a soft-deleted transaction held in the archive.
	DeletedTransaction struct {
		Transaction
		DeletedAt time.Time `json:"deletedAt"`
	}

	// BudgetEntry is one row of the append-only budget history for a month.
	// Timestamp is a human-readable instant used for log display and for
	// latest-wins ordering; its layout sorts lexicographically.
	BudgetEntry struct {
		ID        int64  `json:"id"`
		Category  string `json:"category"`
		Amount    Money  `json:"amount"`
		Date      Date   `json:"date"`
		Timestamp string `json:"timestamp"`
	}
)

// Categories is the fixed category set per transaction type.
var Categories = map[TransactionType][]string{
	Income:  {"salary", "freelance", "investment", "other"},
	Expense: {"food", "transportation", "shopping", "other"},
}

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrUnknownCategory  = errors.New("unknown category for type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyUserName    = errors.New("empty user name")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ValidCategory reports whether category belongs to the set for the type.
func ValidCategory(t TransactionType, category string) bool {
	for _, c := range Categories[t] {
		if c == category {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !ValidCategory(t.Type, t.Category) {
		return ErrUnknownCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

func (e BudgetEntry) Validate() error {
	if !ValidCategory(Expense, e.Category) {
		return ErrUnknownCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

// Deleted stamps a transaction for the archive.
func (t Transaction) Deleted(at time.Time) DeletedTransaction {
	return DeletedTransaction{Transaction: t, DeletedAt: at.UTC()}
}
