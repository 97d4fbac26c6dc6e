package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that callers and transports can tell them apart.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindNotFound          Kind = "NotFound"
	KindForbidden         Kind = "Forbidden"
	KindInvalidTransition Kind = "InvalidTransition"
	KindAlreadyRegistered Kind = "AlreadyRegistered"
	KindProviderInactive  Kind = "ProviderInactive"
	KindConflict          Kind = "Conflict"
	KindUnavailable       Kind = "Unavailable"
	KindRateLimited       Kind = "RateLimited"
)

// Validation codes.
const (
	CodeInvalidPhone     = "InvalidPhone"
	CodeInvalidEmail     = "InvalidEmail"
	CodeInvalidPinFormat = "InvalidPinFormat"
	CodeInvalidPinCode   = "InvalidPinCode"
	CodeInvalidDuration  = "InvalidDuration"
	CodeInvalidOTP       = "InvalidOTP"
	CodeInvalidInput     = "InvalidInput"
)

// Error is a domain failure with a human-readable reason.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Code != "" {
		return string(e.Kind) + ": " + e.Code
	}
	return string(e.Kind)
}

// Is matches on Kind, and on Code when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrProviderInactive  = &Error{Kind: KindProviderInactive}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrRateLimited       = &Error{Kind: KindRateLimited}

	ErrInvalidPhone     = &Error{Kind: KindValidation, Code: CodeInvalidPhone}
	ErrInvalidEmail     = &Error{Kind: KindValidation, Code: CodeInvalidEmail}
	ErrInvalidPinFormat = &Error{Kind: KindValidation, Code: CodeInvalidPinFormat}
	ErrInvalidPinCode   = &Error{Kind: KindValidation, Code: CodeInvalidPinCode}
	ErrInvalidDuration  = &Error{Kind: KindValidation, Code: CodeInvalidDuration}
	ErrInvalidOTP       = &Error{Kind: KindValidation, Code: CodeInvalidOTP}
)

func Validation(code, reason string) error {
	return &Error{Kind: KindValidation, Code: code, Reason: reason}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Reason: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

func AlreadyRegistered(format string, args ...any) error {
	return &Error{Kind: KindAlreadyRegistered, Reason: fmt.Sprintf(format, args...)}
}

func ProviderInactive(format string, args ...any) error {
	return &Error{Kind: KindProviderInactive, Reason: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func Unavailable(format string, args ...any) error {
	return &Error{Kind: KindUnavailable, Reason: fmt.Sprintf(format, args...)}
}

func RateLimited(format string, args ...any) error {
	return &Error{Kind: KindRateLimited, Reason: fmt.Sprintf(format, args...)}
}

// AsError extracts the domain error from a wrapped chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
