// Package errors defines the service error taxonomy shared by the HTTP
// boundary and the gacha core.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error class to API clients.
type Code string

const (
	CodeInvalidBoxType          Code = "INVALID_BOX_TYPE"
	CodeUserNotFound            Code = "USER_NOT_FOUND"
	CodeInsufficientFunds       Code = "INSUFFICIENT_FUNDS"
	CodeMintFailed              Code = "MINT_FAILED"
	CodeSettlementInconsistency Code = "SETTLEMENT_INCONSISTENCY"
	CodeConfiguration           Code = "CONFIGURATION_ERROR"
	CodeInvalidRequest          Code = "INVALID_REQUEST"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeInvalidToken            Code = "INVALID_TOKEN"
	CodeRateLimitExceeded       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// ServiceError is an error carrying a client-facing code, an HTTP status and
// optional structured details.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a key/value detail and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// IsCode reports whether err carries the given service error code.
func IsCode(err error, code Code) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}

func newError(code Code, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// InvalidBoxType reports an unknown box type, listing the valid ones.
func InvalidBoxType(boxType string, valid []string) *ServiceError {
	return newError(CodeInvalidBoxType, http.StatusBadRequest,
		fmt.Sprintf("unknown box type %q", boxType), nil).
		WithDetails("valid_types", valid)
}

// UserNotFound reports a missing user record.
func UserNotFound(userID string) *ServiceError {
	return newError(CodeUserNotFound, http.StatusNotFound, "user not found", nil).
		WithDetails("user_id", userID)
}

// InsufficientFunds reports a balance below the box cost.
func InsufficientFunds(required, current int64) *ServiceError {
	return newError(CodeInsufficientFunds, http.StatusBadRequest, "insufficient coins", nil).
		WithDetails("required", required).
		WithDetails("current", current).
		WithDetails("shortfall", required-current)
}

// MintFailed reports a failed on-chain mint. No local state was changed.
func MintFailed(err error) *ServiceError {
	return newError(CodeMintFailed, http.StatusInternalServerError, "mint failed", err)
}

// SettlementInconsistency reports a confirmed mint whose local settlement did
// not commit. Operator-actionable; never folded into a generic internal error.
func SettlementInconsistency(tokenID, txHash string, err error) *ServiceError {
	return newError(CodeSettlementInconsistency, http.StatusInternalServerError,
		"mint confirmed but settlement failed", err).
		WithDetails("token_id", tokenID).
		WithDetails("tx_hash", txHash)
}

// Configuration reports an invalid catalog or service configuration.
func Configuration(message string) *ServiceError {
	return newError(CodeConfiguration, http.StatusInternalServerError, message, nil)
}

// InvalidRequest reports a malformed request body or parameter.
func InvalidRequest(message string) *ServiceError {
	return newError(CodeInvalidRequest, http.StatusBadRequest, message, nil)
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(message string) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a credential that failed verification.
func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid token", err)
}

// RateLimitExceeded reports request throttling.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected error without leaking its contents to clients.
func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}
