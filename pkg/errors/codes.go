package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeBatchFailed        ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used by call sites that predate the module-prefixed scheme.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeValidation   = ErrCodeValidation
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Risk register error codes
const (
	ErrCodeRiskNotFound        ErrorCode = "RSK_001"
	ErrCodeRiskVersionConflict ErrorCode = "RSK_002"
	ErrCodeRiskCodeExists      ErrorCode = "RSK_003"
	ErrCodeControlNotFound     ErrorCode = "RSK_004"
	ErrCodeFormulaUnknown      ErrorCode = "RSK_005"
)

// Intelligence alert error codes
const (
	ErrCodeAlertNotFound          ErrorCode = "ALR_001"
	ErrCodeAlertInvalidTransition ErrorCode = "ALR_002"
	ErrCodeClassifierUnavailable  ErrorCode = "ALR_003"
	ErrCodeEventNotFound          ErrorCode = "ALR_004"
)

// Period snapshot error codes
const (
	ErrCodePeriodInvalid          ErrorCode = "PRD_001"
	ErrCodePeriodNotFound         ErrorCode = "PRD_002"
	ErrCodePeriodAlreadyCommitted ErrorCode = "PRD_003"
	ErrCodeArchiveUnavailable     ErrorCode = "PRD_005"
)

// Treatment log error codes
const (
	ErrCodeTreatmentEntryNotFound ErrorCode = "TRT_001"
	ErrCodeTreatmentChainBroken   ErrorCode = "TRT_002"
)

// ErrorCodeHTTPStatus maps every code to the HTTP status returned by the API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeBatchFailed:        http.StatusUnprocessableEntity,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeRiskNotFound:        http.StatusNotFound,
	ErrCodeRiskVersionConflict: http.StatusConflict,
	ErrCodeRiskCodeExists:      http.StatusConflict,
	ErrCodeControlNotFound:     http.StatusNotFound,
	ErrCodeFormulaUnknown:      http.StatusBadRequest,

	ErrCodeAlertNotFound:          http.StatusNotFound,
	ErrCodeAlertInvalidTransition: http.StatusBadRequest,
	ErrCodeClassifierUnavailable:  http.StatusBadGateway,
	ErrCodeEventNotFound:          http.StatusNotFound,

	ErrCodePeriodInvalid:          http.StatusBadRequest,
	ErrCodePeriodNotFound:         http.StatusNotFound,
	ErrCodePeriodAlreadyCommitted: http.StatusConflict,
	ErrCodeArchiveUnavailable:     http.StatusServiceUnavailable,

	ErrCodeTreatmentEntryNotFound: http.StatusNotFound,
	ErrCodeTreatmentChainBroken:   http.StatusConflict,
}

// ErrorCodeMessage holds the default client-facing message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeValidation:         "validation failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service failure",
	ErrCodeBatchFailed:        "every item in the batch failed",
	ErrCodeServiceUnavailable: "service unavailable",

	ErrCodeRiskNotFound:        "risk not found",
	ErrCodeRiskVersionConflict: "risk was modified concurrently",
	ErrCodeRiskCodeExists:      "risk code already exists",
	ErrCodeControlNotFound:     "control not found",
	ErrCodeFormulaUnknown:      "unknown residual formula",

	ErrCodeAlertNotFound:          "intelligence alert not found",
	ErrCodeAlertInvalidTransition: "alert is not in the required state",
	ErrCodeClassifierUnavailable:  "classifier unavailable",
	ErrCodeEventNotFound:          "external event not found",

	ErrCodePeriodInvalid:          "invalid period",
	ErrCodePeriodNotFound:         "period not committed",
	ErrCodePeriodAlreadyCommitted: "period already committed",
	ErrCodeArchiveUnavailable:     "snapshot archive unavailable",

	ErrCodeTreatmentEntryNotFound: "treatment log entry not found",
	ErrCodeTreatmentChainBroken:   "treatment log hash chain broken",
}

// HTTPStatusForCode returns the HTTP status for code, 500 when unmapped.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message registered for code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether the code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	s := HTTPStatusForCode(code)
	return s >= 400 && s < 500
}

// IsServerError reports whether the code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= 500
}

// ModuleForCode returns the module prefix of a code, e.g. "ALR" for "ALR_002".
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if i := strings.Index(s, "_"); i > 0 {
		return s[:i]
	}
	return ""
}

//Personal.AI order the ending
