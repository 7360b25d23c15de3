package core

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType is the closed set of transaction kinds. The zero value is
// not a valid type.
type TransactionType uint8

const (
	Income TransactionType = iota + 1
	Outcome
)

type (
	Category struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
	}

	Transaction struct {
		ID        string          `json:"id"`
		Title     string          `json:"title"`
		Value     Money           `json:"value"`
		Type      TransactionType `json:"type"`
		Category  *Category       `json:"category,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// TransactionInput is a transaction that has not been persisted yet.
	// Category is already resolved; nil means "no category".
	TransactionInput struct {
		Title    string
		Value    Money
		Type     TransactionType
		Category *Category
	}
)

// ParseTransactionType accepts the textual forms "income" and "outcome".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.TrimSpace(s) {
	case "income":
		return Income, nil
	case "outcome":
		return Outcome, nil
	}
	return 0, &ValidationError{Field: "type", Err: fmt.Errorf("%w: %q", ErrInvalidType, s)}
}

func (t TransactionType) String() string {
	switch t {
	case Income:
		return "income"
	case Outcome:
		return "outcome"
	}
	return fmt.Sprintf("TransactionType(%d)", uint8(t))
}

// Valid reports whether t is one of the declared variants.
func (t TransactionType) Valid() bool {
	return t == Income || t == Outcome
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Validate checks the invariants every persisted transaction must hold.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Err: ErrEmptyTitle}
	}
	if err := in.Value.Validate(); err != nil {
		return &ValidationError{Field: "value", Err: err}
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	return nil
}

// CategoryTitle returns the title of the attached category or "".
func (t Transaction) CategoryTitle() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Title
}
