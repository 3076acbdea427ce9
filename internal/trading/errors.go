package trading

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInstrumentNotFound    = errors.New("instrument not found")
	ErrInstrumentNotTradable = errors.New("instrument not tradable")
	ErrPositionNotFound      = errors.New("position not found")
	ErrPriceUnavailable      = errors.New("price unavailable")
	ErrConcurrencyConflict   = errors.New("concurrent order conflict")
	ErrNotSquareOffEligible  = errors.New("position is not an intraday position")
)

// ValidationError is one specific reason an order was rejected.
type ValidationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// InvalidOrderError aggregates every validation failure for one order.
type InvalidOrderError struct {
	Violations []ValidationError
}

func (e *InvalidOrderError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "invalid order: " + strings.Join(msgs, "; ")
}

// ExecutionError wraps a storage-layer failure during the atomic write. The
// ledger is fully rolled back; the cause is carried for logging only.
type ExecutionError struct {
	cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("order execution failed: %v", e.cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.cause
}
