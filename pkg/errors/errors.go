// Package errors provides the unified error type and factory functions for the
// MinRisk engine. Every layer (domain, application, infrastructure, interfaces)
// uses AppError as the single carrier for structured error information so HTTP
// responses, logs and metrics agree on the failure category.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting above New/Wrap.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout the engine.
// It supports errors.Is / errors.As traversal through Unwrap.
//
//	return errors.New(errors.ErrCodeAlertNotFound, "alert not found").WithDetail("id=" + id)
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load risk")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description, safe for API responses.
	Message string

	// Detail carries supplementary context such as entity IDs.
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Stack is captured at creation and never included in Error().
	Stack string
}

// Error formats as "[<code>] <message>: <detail>", omitting an empty detail.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of the receiver with Detail set. Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a copy of the receiver with Cause set. Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError around err. A nil err yields nil. When code is
// CodeUnknown and err already carries an AppError, the original code is kept.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// NewValidation builds a validation error with a printf-style message.
func NewValidation(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewValidationError builds a validation error naming the offending field.
func NewValidationError(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Detail: "field=" + field, Stack: captureStack(1)}
}

// NewNotFound builds a generic not-found error with a printf-style message.
func NewNotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewConflict builds a generic conflict error with a printf-style message.
func NewConflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewInternal builds an internal error with a printf-style message.
func NewInternal(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewExternal wraps a collaborator failure (classifier, object store, broker).
func NewExternal(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeExternalService, Message: fmt.Sprintf(format, args...), Cause: err, Stack: captureStack(1)}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Conflict constructs a CodeConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the code of the first AppError in err's chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func anyCode(err error, codes ...ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			for _, c := range codes {
				if ae.Code == c {
					return true
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports a missing risk, control, alert, event, period or log entry.
func IsNotFound(err error) bool {
	return anyCode(err, ErrCodeNotFound, ErrCodeRiskNotFound, ErrCodeControlNotFound,
		ErrCodeAlertNotFound, ErrCodeEventNotFound, ErrCodePeriodNotFound, ErrCodeTreatmentEntryNotFound)
}

// IsValidation reports malformed input or an illegal state transition.
func IsValidation(err error) bool {
	return anyCode(err, ErrCodeValidation, ErrCodeBadRequest, ErrCodeAlertInvalidTransition,
		ErrCodePeriodInvalid, ErrCodeFormulaUnknown)
}

// IsConflict reports a lost compare-and-set or a duplicate create-once write.
func IsConflict(err error) bool {
	return anyCode(err, ErrCodeConflict, ErrCodeRiskVersionConflict, ErrCodeRiskCodeExists,
		ErrCodePeriodAlreadyCommitted, ErrCodeTreatmentChainBroken)
}

// IsExternal reports a failure of an outside collaborator.
func IsExternal(err error) bool {
	return anyCode(err, ErrCodeExternalService, ErrCodeClassifierUnavailable, ErrCodeArchiveUnavailable)
}

//Personal.AI order the ending
