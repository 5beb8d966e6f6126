package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("CUS_001", "Duplicate custody", http.StatusConflict),
			expected: "[CUS_001] Duplicate custody",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("CNV_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("convert: %w", ErrEmptyCustody())

	assert.True(t, HasCode(wrapped, "CUS_002"))
	assert.False(t, HasCode(wrapped, "CUS_001"))
	assert.False(t, HasCode(errors.New("plain"), "CUS_002"))
	assert.False(t, HasCode(nil, "CUS_002"))
}

func TestSecurityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAccessKey", ErrInvalidAccessKey(), "SEC_001", 401},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_002", 401},
		{"TimestampExpired", ErrTimestampExpired(), "SEC_003", 403},
		{"NonceUsed", ErrNonceUsed(), "SEC_004", 403},
		{"InvalidCaller", ErrInvalidCaller(), "SEC_005", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestConversionErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidInputAssetA", ErrInvalidInputAssetA(), "CNV_001", 400},
		{"InvalidOutputAssetA", ErrInvalidOutputAssetA(), "CNV_002", 400},
		{"InvalidAmount", ErrInvalidAmount(), "CNV_003", 400},
		{"InvalidCombination", ErrInvalidCombination(), "CNV_004", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestCustodyAndRegistryErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"DuplicateCustody", ErrDuplicateCustody(), "CUS_001", 409},
		{"EmptyCustody", ErrEmptyCustody(), "CUS_002", 404},
		{"UnresolvedAddress", ErrUnresolvedAddress(), "REG_001", 422},
		{"Validation", Validation("bad"), "REQ_001", 400},
		{"NotFound", ErrNotFound("Registry entry"), "REQ_002", 404},
		{"PayloadTooLarge", ErrPayloadTooLarge(), "REQ_003", 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	settleErr := ErrSettlementFailure(inner)
	assert.Equal(t, "SYS_002", settleErr.Code)
	assert.Equal(t, 502, settleErr.HTTPStatus)
	assert.True(t, errors.Is(settleErr, inner))
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Custody record")
	assert.Contains(t, err.Message, "Custody record")
	assert.Equal(t, "REQ_002", err.Code)
}
