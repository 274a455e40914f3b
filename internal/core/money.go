// Package core defines the domain model of the tracker: transactions, the
// archive form of a transaction, budget history entries, and money handling.
//
// Money is kept as integer cents; floats only appear at the JSON and display
// boundaries.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a positive currency amount in cents.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding on the
// third decimal place. Both dot and comma separators are accepted. Signed,
// zero, and malformed inputs are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents (rounds up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the canonical two-digit form without grouping, e.g.
// "1234.50". This is the CSV representation and parses back to the same value.
func (m Money) Decimal() string {
	neg := ""
	cents := m.Cents
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return neg + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

// Display returns the amount with two fraction digits and comma thousands
// grouping, e.g. "1,234.50".
func (m Money) Display() string {
	neg := ""
	cents := m.Cents
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return neg + groupThousands(cents/100) + "." + pad2(cents%100)
}

// Float returns the decimal value for JSON and interop. Use cents for
// arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// MarshalJSON emits the shortest decimal number form, matching the persisted
// layout of plain numeric amounts ("100", "100.5", "100.25").
func (m Money) MarshalJSON() ([]byte, error) {
	cents := m.Cents
	switch {
	case cents%100 == 0:
		return []byte(strconv.FormatInt(cents/100, 10)), nil
	case cents%10 == 0:
		return []byte(strconv.FormatInt(cents/100, 10) + "." + strconv.FormatInt((cents%100)/10, 10)), nil
	default:
		return []byte(m.Decimal()), nil
	}
}

func (m *Money) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(strings.Trim(string(data), `"`), 64)
	if err != nil {
		return ErrInvalidAmount
	}
	// Half away from zero on the sub-cent remainder.
	m.Cents = int64(math.Round(f * 100))
	return nil
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
