// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")

	ErrRateLimited         = errors.New("rate limited")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrModel               = errors.New("completion model failure")
	ErrStorage             = errors.New("storage unavailable")
	ErrSignatureInvalid    = errors.New("webhook signature invalid")
	ErrDataIncomplete      = errors.New("event data incomplete")
	ErrUnmappedPrice       = errors.New("price not mapped to credits")
	ErrAlreadyProcessed    = errors.New("already processed")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "invalid token", http.StatusUnauthorized, "TOKEN_INVALID")
}

func RateLimitedError() *AppError {
	return NewAppError(
		ErrRateLimited,
		"too many generation requests, try again shortly",
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

func InsufficientCreditsError() *AppError {
	return NewAppError(
		ErrInsufficientCredits,
		"not enough credits",
		http.StatusPaymentRequired,
		"INSUFFICIENT_CREDITS",
	)
}

func ModelError() *AppError {
	return NewAppError(
		ErrModel,
		"copy generation failed, no credits were charged",
		http.StatusBadGateway,
		"MODEL_ERROR",
	)
}

func StorageError() *AppError {
	return NewAppError(
		ErrStorage,
		"generation could not be saved, no credits were charged",
		http.StatusServiceUnavailable,
		"STORAGE_ERROR",
	)
}

func SignatureInvalidError() *AppError {
	return NewAppError(
		ErrSignatureInvalid,
		"signature verification failed",
		http.StatusBadRequest,
		"SIGNATURE_INVALID",
	)
}

// ErrorFromDomain maps a wrapped sentinel to its AppError. Unknown errors
// return nil so callers fall back to a 500.
func ErrorFromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("")
	case errors.Is(err, ErrNotFound):
		return NotFoundError("resource")
	case errors.Is(err, ErrInvalidInput):
		return ValidationError(err.Error())
	case errors.Is(err, ErrConflict):
		return ConflictError(err.Error())
	case errors.Is(err, ErrRateLimited):
		return RateLimitedError()
	case errors.Is(err, ErrInsufficientCredits):
		return InsufficientCreditsError()
	case errors.Is(err, ErrModel):
		return ModelError()
	case errors.Is(err, ErrStorage):
		return StorageError()
	case errors.Is(err, ErrSignatureInvalid):
		return SignatureInvalidError()
	}

	return nil
}
