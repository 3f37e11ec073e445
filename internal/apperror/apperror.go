package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("Validation Error")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSeedFailed        = errors.New("seed failed")
)

// Stable machine-readable codes. Clients switch on these, never on Message.
const (
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeProgressionNotFound = "PROGRESSION_NOT_FOUND"
	CodeNoProgression       = "NO_PROGRESSION"
	CodeProgressionExists   = "PROGRESSION_EXISTS"
	CodeInsufficientClicks  = "INSUFFICIENT_CLICKS"
	CodeNotEnoughMoney      = "NOT_ENOUGH_MONEY"
	CodeMaxQuantityReached  = "MAX_QUANTITY_REACHED"
	CodeItemNotFound        = "ITEM_NOT_FOUND"
	CodeNoItems             = "NO_ITEMS"
	CodeSeedFailed          = "SEED_FAILED"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidPassword     = "INVALID_PASSWORD"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeForbidden           = "FORBIDDEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

type AppError struct {
	Err     error  // actual error
	Code    string // Stable code, e.g. "NOT_ENOUGH_MONEY"
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCode returns a copy of e carrying a more specific code.
func (e *AppError) WithCode(code string) *AppError {
	cp := *e
	cp.Code = code
	return &cp
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// Unauthorized is returned when no verified identity accompanies a request.
func Unauthorized(code, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    code,
		Message: message,
	}
}

// InsufficientFunds covers every failed economic precondition: not enough
// clicks to reset, not enough clicks to buy, or an item already at its cap.
func InsufficientFunds(code, message string) *AppError {
	return &AppError{
		Err:     ErrInsufficientFunds,
		Code:    code,
		Message: message,
	}
}

// SeedFailed wraps the underlying cause so it stays visible in logs while the
// client only sees the stable code.
func SeedFailed(cause error) *AppError {
	msg := "failed to seed catalog"
	if cause != nil {
		msg = fmt.Sprintf("failed to seed catalog: %v", cause)
	}
	return &AppError{
		Err:     ErrSeedFailed,
		Code:    CodeSeedFailed,
		Message: msg,
	}
}

// CodeOf returns the code of the first *AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
