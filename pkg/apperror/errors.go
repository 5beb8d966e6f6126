package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Security & Caller Authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ErrInvalidCaller is returned when a processor-only operation is invoked by anyone else.
func ErrInvalidCaller() *AppError {
	return New("SEC_005", "Caller is not the trusted processor", http.StatusForbidden)
}

// ---- Conversion Contract (CNV) ----

func ErrInvalidInputAssetA() *AppError {
	return New("CNV_001", "Invalid input asset A", http.StatusBadRequest)
}

func ErrInvalidOutputAssetA() *AppError {
	return New("CNV_002", "Invalid output asset A", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("CNV_003", "Invalid amount", http.StatusBadRequest)
}

func ErrInvalidCombination() *AppError {
	return New("CNV_004", "Invalid asset combination", http.StatusBadRequest)
}

// ---- Custody (CUS) ----

func ErrDuplicateCustody() *AppError {
	return New("CUS_001", "An item is already in custody for this handle", http.StatusConflict)
}

func ErrEmptyCustody() *AppError {
	return New("CUS_002", "No item in custody for this handle", http.StatusNotFound)
}

// ---- Registry (REG) ----

func ErrUnresolvedAddress() *AppError {
	return New("REG_001", "Withdraw address is not registered", http.StatusUnprocessableEntity)
}

// ---- Request (REQ) ----

// Validation returns a REQ_001 validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("REQ_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrPayloadTooLarge() *AppError {
	return New("REQ_003", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrSettlementFailure(err error) *AppError {
	return Wrap("SYS_002", "Settlement layer rejected the item transfer", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
