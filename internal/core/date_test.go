package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2025-01-05" {
		t.Fatalf("String() = %q", d.String())
	}
	if d.MonthKey() != "2025-01" {
		t.Fatalf("MonthKey() = %q", d.MonthKey())
	}
	for _, bad := range []string{"", "2025-13-01", "05/01/2025", "2025-01-05T10:00:00Z"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDateInMonth(t *testing.T) {
	d := NewDate(2025, 1, 31)
	if !d.InMonth("2025-01") {
		t.Fatal("expected 2025-01-31 in 2025-01")
	}
	if d.InMonth("2025-02") {
		t.Fatal("2025-01-31 must not be in 2025-02")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 6, 30)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2025-06-30"` {
		t.Fatalf("marshal = %s", data)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", back, d)
	}
}

func TestValidMonthKey(t *testing.T) {
	if !ValidMonthKey("2025-01") {
		t.Fatal("2025-01 should be valid")
	}
	for _, bad := range []string{"2025-13", "2025", "01-2025", ""} {
		if ValidMonthKey(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}
