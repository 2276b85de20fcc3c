package errors

import (
	"errors"
	"fmt"
)

// AppError is the error type carried from the domain to the HTTP layer.
// Code is a business code (not an HTTP status), Message is safe to show to
// the caller and Err is the internal cause, which is only ever logged.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code and message so that sentinel errors
// survive being copied with a different cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates an AppError without an underlying cause.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates an AppError with a formatted message.
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap hides a system error (database, network) behind a generic message.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Error codes:
//   - 4xxxx: caller errors (bad params, business rule rejected the request)
//   - 5xxxx: server errors (database, cache, broker)
const (
	ErrCodeInternal      = 50000
	ErrCodeDatabaseError = 50001
	ErrCodeRedisError    = 50002
	ErrCodeBrokerError   = 50003
	ErrCodeGatewayError  = 50004

	ErrCodeUnauthorized     = 40100
	ErrCodeInvalidToken     = 40101
	ErrCodeTokenExpired     = 40102
	ErrCodeForbidden        = 40104
	ErrCodeInvalidSignature = 40105

	ErrCodeNotFound             = 40400
	ErrCodeOrganizationNotFound = 40401
	ErrCodeProductNotFound      = 40402
	ErrCodeOrderNotFound        = 40403

	ErrCodeBusinessError          = 40000
	ErrCodeInsufficientInventory  = 40001
	ErrCodeInvalidOrderStatus     = 40002
	ErrCodeTentQuotaExceeded      = 40003
	ErrCodeTeamRequired           = 40004
	ErrCodeMaxQuantityExceeded    = 40005
	ErrCodeProductInactive        = 40006
	ErrCodePaymentNotCompleted    = 40007
	ErrCodePaymentInProgress      = 40008
	ErrCodeDuplicateEntry         = 40009
	ErrCodeEmptyCart              = 40010
	ErrCodeReservationUnavailable = 40011

	ErrCodeInvalidParams = 40900
	ErrCodeBindError     = 40901
)

var (
	ErrInternal      = New(ErrCodeInternal, "internal server error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache service error")

	ErrUnauthorized     = New(ErrCodeUnauthorized, "authentication required")
	ErrInvalidToken     = New(ErrCodeInvalidToken, "invalid token")
	ErrTokenExpired     = New(ErrCodeTokenExpired, "token expired")
	ErrForbidden        = New(ErrCodeForbidden, "access denied")
	ErrInvalidSignature = New(ErrCodeInvalidSignature, "invalid webhook signature")

	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request body")
)

// IsAppError reports whether err is (or wraps) an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts the AppError from err, wrapping anything else as internal.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal server error")
}
