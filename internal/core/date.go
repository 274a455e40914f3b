package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	monthKeyLayout = "2006-01"
	// TimestampLayout is the human-readable budget log instant. It sorts
	// lexicographically, which the latest-wins reduction relies on.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date without a time component. It marshals to the ISO
// form "2006-01-02".
type Date struct {
	time.Time
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the "YYYY-MM" bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format(monthKeyLayout)
}

// InMonth reports whether the date falls in the given "YYYY-MM" month.
func (d Date) InMonth(monthKey string) bool {
	return d.MonthKey() == monthKey
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidMonthKey reports whether s is a well-formed "YYYY-MM" key.
func ValidMonthKey(s string) bool {
	_, err := time.Parse(monthKeyLayout, s)
	return err == nil
}
