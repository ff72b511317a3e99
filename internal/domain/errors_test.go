package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrorCodeTxnInvalidState, "capture requires an open authorization")
	assert.Equal(t, "TXN_INVALID_STATE: capture requires an open authorization", err.Error())

	wrapped := WrapError(ErrorCodeDatabaseError, "save transaction", errors.New("connection reset"))
	assert.Equal(t, "INTERNAL_DATABASE_ERROR: save transaction: connection reset", wrapped.Error())
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("execute capture: %w",
		NewDomainError(ErrorCodeTxnInvalidState, "authorization already captured"))

	assert.True(t, errors.Is(err, ErrTxnInvalidState))
	assert.False(t, errors.Is(err, ErrTxnNotFound))
	assert.True(t, IsDomainError(err, ErrorCodeTxnInvalidState))
	assert.Equal(t, ErrorCodeTxnInvalidState, GetErrorCode(err))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("no rows")
	err := WrapError(ErrorCodeTxnNotFound, "transaction not found", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNotFoundError(err))
}

func TestDomainError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrTxnAmountExceeded.WithDetail("refundable", "10.00")

	require.NotNil(t, detailed.Details)
	assert.Equal(t, "10.00", detailed.Details["refundable"])
	assert.NotContains(t, ErrTxnAmountExceeded.Details, "refundable")
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsValidationError(ErrPMRequired))
	assert.True(t, IsValidationError(ErrActionUnsupported))
	assert.True(t, IsStateError(ErrTxnAmountExceeded))
	assert.True(t, IsNotFoundError(ErrPMNotConfigured))
	assert.True(t, IsAuthError(ErrForbidden))
	assert.False(t, IsAuthError(ErrTxnNotFound))
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
