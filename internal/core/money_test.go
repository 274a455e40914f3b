package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"1234567.89", 123456789, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.cents {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.cents, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{100, "1.00"},
		{123456789, "1234567.89"},
		{5, "0.05"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Decimal(); got != tc.want {
			t.Fatalf("Decimal(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{100, "1.00"},
		{123450, "1,234.50"},
		{123456789, "1,234,567.89"},
		{100000000, "1,000,000.00"},
		{-123450, "-1,234.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Display(); got != tc.want {
			t.Fatalf("Display(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{10000, "100"},
		{10050, "100.5"},
		{10025, "100.25"},
	}
	for _, tc := range cases {
		data, err := json.Marshal(Money{Cents: tc.cents})
		if err != nil {
			t.Fatalf("marshal %d: %v", tc.cents, err)
		}
		if string(data) != tc.want {
			t.Fatalf("marshal %d = %s, want %s", tc.cents, data, tc.want)
		}
		var back Money
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back.Cents != tc.cents {
			t.Fatalf("round trip %d -> %d", tc.cents, back.Cents)
		}
	}
	// Plain floats from the legacy persisted layout parse too.
	var m Money
	if err := json.Unmarshal([]byte("99.99"), &m); err != nil || m.Cents != 9999 {
		t.Fatalf("legacy float: cents=%d err=%v", m.Cents, err)
	}
}
