// Package errors provides the standardized error taxonomy shared by every pipeline stage.
package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents a stable, client-facing error code.
type ErrorCode string

// ErrorKind groups codes by the stage that raises them.
type ErrorKind string

const (
	KindInput      ErrorKind = "INPUT"
	KindEntity     ErrorKind = "ENTITY"
	KindTemporal   ErrorKind = "TEMPORAL"
	KindValidation ErrorKind = "VALIDATION"
	KindExecution  ErrorKind = "EXECUTION"
	KindParse      ErrorKind = "PARSE"
	KindInternal   ErrorKind = "INTERNAL"
)

const (
	ErrCodeEmptyQuestion ErrorCode = "EMPTY_QUESTION"

	ErrCodeEntityNotFound           ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeEntityCaseMismatch       ErrorCode = "ENTITY_CASE_MISMATCH"
	ErrCodeEntityInvalidLength      ErrorCode = "ENTITY_INVALID_LENGTH"
	ErrCodeEntityAmbiguousShortName ErrorCode = "ENTITY_AMBIGUOUS_SHORT_NAME"
	ErrCodeEntityInvalidSuffix      ErrorCode = "ENTITY_INVALID_SUFFIX"

	ErrCodeInvalidDate       ErrorCode = "INVALID_DATE"
	ErrCodeFutureDate        ErrorCode = "FUTURE_DATE"
	ErrCodeRangeInverted     ErrorCode = "RANGE_INVERTED"
	ErrCodeCalendarExhausted ErrorCode = "CALENDAR_EXHAUSTED"

	ErrCodeMissingRequiredParameter  ErrorCode = "MISSING_REQUIRED_PARAMETER"
	ErrCodeLimitOutOfRange           ErrorCode = "LIMIT_OUT_OF_RANGE"
	ErrCodeScopeMissing              ErrorCode = "SCOPE_MISSING"
	ErrCodeEntityCardinalityMismatch ErrorCode = "ENTITY_CARDINALITY_MISMATCH"
	ErrCodeExclusionNotAllowed       ErrorCode = "EXCLUSION_NOT_ALLOWED"
	ErrCodePeriodKindNotAccepted     ErrorCode = "PERIOD_KIND_NOT_ACCEPTED"

	ErrCodeExecutionTimeout ErrorCode = "EXECUTION_TIMEOUT"
	ErrCodeNoDataFound      ErrorCode = "NO_DATA_FOUND"
	ErrCodeUpstreamFailure  ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"

	ErrCodeOutputUnparseable ErrorCode = "OUTPUT_UNPARSEABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var codeKinds = map[ErrorCode]ErrorKind{
	ErrCodeEmptyQuestion: KindInput,

	ErrCodeEntityNotFound:           KindEntity,
	ErrCodeEntityCaseMismatch:       KindEntity,
	ErrCodeEntityInvalidLength:      KindEntity,
	ErrCodeEntityAmbiguousShortName: KindEntity,
	ErrCodeEntityInvalidSuffix:      KindEntity,

	ErrCodeInvalidDate:       KindTemporal,
	ErrCodeFutureDate:        KindTemporal,
	ErrCodeRangeInverted:     KindTemporal,
	ErrCodeCalendarExhausted: KindTemporal,

	ErrCodeMissingRequiredParameter:  KindValidation,
	ErrCodeLimitOutOfRange:           KindValidation,
	ErrCodeScopeMissing:              KindValidation,
	ErrCodeEntityCardinalityMismatch: KindValidation,
	ErrCodeExclusionNotAllowed:       KindValidation,
	ErrCodePeriodKindNotAccepted:     KindValidation,

	ErrCodeExecutionTimeout: KindExecution,
	ErrCodeNoDataFound:      KindExecution,
	ErrCodeUpstreamFailure:  KindExecution,
	ErrCodeRequestCancelled: KindExecution,

	ErrCodeOutputUnparseable: KindParse,

	ErrCodeInternal: KindInternal,
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode         `json:"code"`
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Detail    map[string]string `json:"detail,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp time.Time         `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithDetail returns the same error with one more detail entry.
func (e *StandardError) WithDetail(key, value string) *StandardError {
	if e.Detail == nil {
		e.Detail = make(map[string]string)
	}
	e.Detail[key] = value
	return e
}

// Local reports whether the error was raised before any executor ran.
// Local errors are final and never trigger the fallback path.
func (e *StandardError) Local() bool {
	switch e.Kind {
	case KindInput, KindEntity, KindTemporal, KindValidation:
		return true
	}
	return false
}

func newError(code ErrorCode, message string, detail map[string]string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Kind:      GetErrorCategory(code),
		Message:   message,
		Detail:    detail,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Classification Helpers
// ==========================

// GetErrorCategory returns the kind for a code, INTERNAL for unknown codes.
func GetErrorCategory(code ErrorCode) ErrorKind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindInternal
}

// IsRetryableErrorCode reports whether a caller may retry the same request.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeExecutionTimeout, ErrCodeUpstreamFailure:
		return true
	default:
		return false
	}
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the code of a standard error or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// ==========================
// 3. Error Constructors
// ==========================

func NewEmptyQuestionError() *StandardError {
	return newError(ErrCodeEmptyQuestion, "Question text is empty", nil, nil)
}

// NewEntityNotFoundError is raised when nothing in the identifier index matches.
func NewEntityNotFoundError(input string) *StandardError {
	return newError(ErrCodeEntityNotFound, "No security or sector matches the input",
		map[string]string{"input": input}, nil)
}

// NewEntityCaseMismatchError carries the corrected suffix and identifier.
func NewEntityCaseMismatchError(input, correctedSuffix, correctedCode string) *StandardError {
	return newError(ErrCodeEntityCaseMismatch, "Market suffix must be upper case",
		map[string]string{
			"input":           input,
			"correctedSuffix": correctedSuffix,
			"suggestion":      correctedCode,
		}, nil)
}

// NewEntityInvalidLengthError carries the observed digit count.
func NewEntityInvalidLengthError(input string, length int) *StandardError {
	return newError(ErrCodeEntityInvalidLength, "Security code must have exactly 6 digits",
		map[string]string{"input": input, "length": strconv.Itoa(length)}, nil)
}

func NewEntityAmbiguousShortNameError(input, fullName string) *StandardError {
	return newError(ErrCodeEntityAmbiguousShortName, "Informal short name is not accepted, use the full name",
		map[string]string{"input": input, "suggestion": fullName}, nil)
}

// NewEntityInvalidSuffixError is raised for suffixes outside SH, SZ, BJ.
// suggestion may be empty when no listing exists for the bare code.
func NewEntityInvalidSuffixError(input, suffix, suggestion string) *StandardError {
	detail := map[string]string{"input": input, "suffix": suffix}
	if suggestion != "" {
		detail["suggestion"] = suggestion
	}
	return newError(ErrCodeEntityInvalidSuffix, "Market suffix is not one of SH, SZ, BJ", detail, nil)
}

func NewInvalidDateError(input, reason string) *StandardError {
	return newError(ErrCodeInvalidDate, "Date cannot be resolved",
		map[string]string{"input": input, "reason": reason}, nil)
}

func NewFutureDateError(date, latest string) *StandardError {
	return newError(ErrCodeFutureDate, "Date is after the latest trading date with data",
		map[string]string{"date": date, "latest": latest}, nil)
}

func NewRangeInvertedError(start, end string) *StandardError {
	return newError(ErrCodeRangeInverted, "Range start is after range end",
		map[string]string{"start": start, "end": end}, nil)
}

// NewCalendarExhaustedError is raised when the lookback window holds no trading day.
func NewCalendarExhaustedError(anchor string, lookbackDays int) *StandardError {
	return newError(ErrCodeCalendarExhausted, "No trading date found inside the lookback window",
		map[string]string{"anchor": anchor, "lookbackDays": strconv.Itoa(lookbackDays)}, nil)
}

func NewMissingParameterError(template, kind string) *StandardError {
	return newError(ErrCodeMissingRequiredParameter, fmt.Sprintf("Template '%s' requires parameter '%s'", template, kind),
		map[string]string{"template": template, "parameter": kind}, nil)
}

func NewLimitOutOfRangeError(limit, max int) *StandardError {
	return newError(ErrCodeLimitOutOfRange, fmt.Sprintf("Limit must be between 1 and %d", max),
		map[string]string{"limit": strconv.Itoa(limit), "max": strconv.Itoa(max)}, nil)
}

// NewScopeMissingError suggests the explicitly scoped form of a bare sector name.
func NewScopeMissingError(sector string) *StandardError {
	return newError(ErrCodeScopeMissing, "Sector name needs an explicit scope marker",
		map[string]string{"sector": sector, "suggestion": sector + "板块"}, nil)
}

func NewEntityCardinalityError(template string, got, min, max int) *StandardError {
	return newError(ErrCodeEntityCardinalityMismatch,
		fmt.Sprintf("Template '%s' expects %d to %d entities, got %d", template, min, max, got),
		map[string]string{
			"template": template,
			"got":      strconv.Itoa(got),
			"min":      strconv.Itoa(min),
			"max":      strconv.Itoa(max),
		}, nil)
}

func NewExclusionNotAllowedError(template, rule string) *StandardError {
	return newError(ErrCodeExclusionNotAllowed, fmt.Sprintf("Template '%s' does not accept exclusion '%s'", template, rule),
		map[string]string{"template": template, "exclusion": rule}, nil)
}

// NewPeriodKindError rejects a period whose shape the template cannot query,
// such as a multi-day range on a single-date template.
func NewPeriodKindError(template, kind string, accepted []string) *StandardError {
	return newError(ErrCodePeriodKindNotAccepted, fmt.Sprintf("Template '%s' does not accept a %s period", template, kind),
		map[string]string{"template": template, "period": kind, "accepted": strings.Join(accepted, ",")}, nil)
}

// NewExecutionTimeoutError creates a retryable timeout error for the given path.
func NewExecutionTimeoutError(path string, err error) *StandardError {
	detail := map[string]string{"path": path}
	if err != nil {
		detail["error"] = err.Error()
	}
	return newError(ErrCodeExecutionTimeout, "Execution exceeded its deadline", detail, err)
}

func NewNoDataFoundError(path, template string) *StandardError {
	return newError(ErrCodeNoDataFound, "Query returned no data",
		map[string]string{"path": path, "template": template}, nil)
}

// NewUpstreamFailureError wraps a failure of the market DB, search cluster or generative service.
func NewUpstreamFailureError(path, service string, err error) *StandardError {
	detail := map[string]string{"path": path, "service": service}
	if err != nil {
		detail["error"] = err.Error()
	}
	return newError(ErrCodeUpstreamFailure, fmt.Sprintf("Upstream service '%s' failed", service), detail, err)
}

func NewRequestCancelledError(err error) *StandardError {
	return newError(ErrCodeRequestCancelled, "Request was cancelled", nil, err)
}

// NewOutputUnparseableError keeps a short preview of the raw generator output.
func NewOutputUnparseableError(preview string) *StandardError {
	return newError(ErrCodeOutputUnparseable, "Generator output could not be interpreted",
		map[string]string{"preview": preview}, nil)
}

func NewInternalError(err error) *StandardError {
	detail := map[string]string{}
	if err != nil {
		detail["error"] = err.Error()
	}
	return newError(ErrCodeInternal, "Unexpected error", detail, err)
}
