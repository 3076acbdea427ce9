package trading

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTxErrorMapsRetryableCodes(t *testing.T) {
	// serialization failure
	require.ErrorIs(t, txError(&pgconn.PgError{Code: "40001"}), ErrConcurrencyConflict)
	// deadlock abort, e.g. a user sell racing a forced square-off
	require.ErrorIs(t, txError(&pgconn.PgError{Code: "40P01"}), ErrConcurrencyConflict)
}

func TestTxErrorWrapsOtherFailures(t *testing.T) {
	cause := errors.New("connection reset")
	err := txError(cause)

	var exec *ExecutionError
	require.ErrorAs(t, err, &exec)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrConcurrencyConflict)
}
