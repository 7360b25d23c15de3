package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{" outcome ", Outcome, true},
		{"Income", 0, false},
		{"", 0, false},
		{"transfer", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestTransactionTypeText(t *testing.T) {
	b, err := json.Marshal(map[string]TransactionType{"t": Outcome})
	if err != nil || string(b) != `{"t":"outcome"}` {
		t.Fatalf("unexpected marshal %s (err=%v)", b, err)
	}
	if _, err := json.Marshal(TransactionType(0)); err == nil {
		t.Fatalf("expected error marshaling zero type")
	}
	var tt TransactionType
	if err := json.Unmarshal([]byte(`"income"`), &tt); err != nil || tt != Income {
		t.Fatalf("unexpected unmarshal %v (err=%v)", tt, err)
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{Title: "Salary", Value: Money{Cents: 50000}, Type: Income}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := TransactionInput{Title: "Free sample", Value: Money{}, Type: Outcome}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero value should be allowed, got %v", err)
	}

	bads := []struct {
		in    TransactionInput
		field string
	}{
		{TransactionInput{Title: "  ", Value: Money{Cents: 1}, Type: Income}, "title"},
		{TransactionInput{Title: "a", Value: Money{Cents: -1}, Type: Income}, "value"},
		{TransactionInput{Title: "a", Value: Money{Cents: 1}}, "type"},
		{TransactionInput{Title: "a", Value: Money{Cents: 1}, Type: TransactionType(9)}, "type"},
	}
	for i, tc := range bads {
		err := tc.in.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("case %d expected field %q, got %q", i, tc.field, verr.Field)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("disk full")
	serr := &StoreError{Op: "create transactions", Err: cause}
	if !errors.Is(serr, ErrStore) || !errors.Is(serr, cause) {
		t.Fatalf("store error should match ErrStore and its cause")
	}
	ferr := &InsufficientFundsError{Requested: Money{Cents: 40000}, Available: Money{Cents: 30000}}
	if !errors.Is(ferr, ErrInsufficientFunds) {
		t.Fatalf("insufficient funds error should match sentinel")
	}
	if ferr.Error() != "insufficient funds: outcome 400.00 exceeds balance 300.00" {
		t.Fatalf("unexpected message %q", ferr.Error())
	}
	rerr := &SourceReadError{Path: "x.csv", Err: cause}
	if !errors.Is(rerr, ErrSourceRead) || errors.Is(rerr, ErrStore) {
		t.Fatalf("source read error should only match ErrSourceRead")
	}
}
