package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStore             = errors.New("store failure")
	ErrSourceRead        = errors.New("source read failure")
)

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNegativeValue = errors.New("negative value")
	ErrInvalidType   = errors.New("invalid transaction type")

	ErrAmountTooLarge  = errors.New("amount too large")
	ErrBalanceOverflow = errors.New("balance out of range")
)

// ValidationError reports a bad field on a single transaction.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientFundsError is returned when an outcome exceeds the current total.
type InsufficientFundsError struct {
	Requested Money
	Available Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: outcome %s exceeds balance %s", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// StoreError wraps a persistence or query failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// SourceReadError is returned when a tabular source cannot be opened or streamed.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

func (e *SourceReadError) Is(target error) bool { return target == ErrSourceRead }
