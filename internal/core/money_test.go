package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"10000000000000", 1_000_000_000_000_000, true},
		{"10000000000000.004", 1_000_000_000_000_000, true},
		{"10000000000000.005", 0, false},
		{"1e3", 0, false},
		{"1E3", 0, false},
		{"1e20000000", 0, false},
		{"1e-20000000", 0, false},
		{"0." + strings.Repeat("0", 80) + "1", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseMoneyLimits(t *testing.T) {
	if _, err := ParseMoney("10000000000000.01"); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}

	start := time.Now()
	_, err := ParseMoney("1e2147483647")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("exponent input took %s", elapsed)
	}
}

func TestMoneyValidateMaximum(t *testing.T) {
	if err := MaxMoney.Validate(); err != nil {
		t.Fatalf("MaxMoney must be valid: %v", err)
	}
	if err := (Money{Cents: MaxMoney.Cents + 1}).Validate(); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestMoneyAddSubOverflow(t *testing.T) {
	if _, err := (Money{Cents: math.MaxInt64}).Add(Money{Cents: 1}); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected overflow on add, got %v", err)
	}
	if _, err := (Money{Cents: math.MinInt64}).Sub(Money{Cents: 1}); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected overflow on sub, got %v", err)
	}
	got, err := (Money{Cents: 150}).Sub(Money{Cents: 200})
	if err != nil || got.Cents != -50 {
		t.Fatalf("expected -50, got %d (err=%v)", got.Cents, err)
	}
}

func TestParseMoneyNegativeSentinel(t *testing.T) {
	if _, err := ParseMoney("-0.50"); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("expected ErrNegativeValue, got %v", err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1230:   "12.30",
		-25000: "-250.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		V Money `json:"v"`
	}{Money{Cents: 1050}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"v":10.50}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 3.2, "b": "7,05"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.A.Cents != 320 || in.B.Cents != 705 {
		t.Fatalf("unexpected values %+v", in)
	}
	if err := json.Unmarshal([]byte(`{"a": -1}`), &in); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
