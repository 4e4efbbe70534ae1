package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upstream and persistence failures.
type ErrorKind string

const (
	// ErrNotFound marks an unknown or delisted symbol. Expected, non-fatal.
	ErrNotFound ErrorKind = "NOT_FOUND"
	// ErrTransient marks timeouts, rate limits and network failures. Retryable.
	ErrTransient ErrorKind = "TRANSIENT"
	// ErrMalformed marks provider schema or parse mismatches. Not retryable.
	ErrMalformed ErrorKind = "MALFORMED"
	// ErrCacheIO marks persistence failures. Non-fatal, degrades to memory-only.
	ErrCacheIO ErrorKind = "CACHE_IO"
)

// FetchError is the typed result of a failed upstream or cache operation.
// Provider errors never cross a component boundary untyped.
type FetchError struct {
	Kind   ErrorKind `json:"kind"`
	Symbol string    `json:"symbol,omitempty"`
	Msg    string    `json:"message"`
	Err    error     `json:"-"`
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Symbol, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Symbol, e.Msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the scheduler may retry this failure.
func (e *FetchError) Retryable() bool { return e.Kind == ErrTransient }

// NewFetchError builds a typed error for a symbol.
func NewFetchError(kind ErrorKind, symbol, msg string, err error) *FetchError {
	return &FetchError{Kind: kind, Symbol: symbol, Msg: msg, Err: err}
}

// AsFetchError extracts a *FetchError, wrapping unknown errors as TRANSIENT.
func AsFetchError(symbol string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return NewFetchError(ErrTransient, symbol, "unclassified error", err)
}
