package errors

import (
	"context"
	stderrors "errors"
)

// ErrorHandler turns arbitrary errors into StandardErrors and logs them once.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Normalize ensures we always have a StandardError. A nil error stays nil.
func (h *ErrorHandler) Normalize(err error, fields map[string]interface{}) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := normalizeError(err)
	h.logError(stdErr, fields)
	return stdErr
}

func normalizeError(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewExecutionTimeoutError("", err)
	case stderrors.Is(err, context.Canceled):
		return NewRequestCancelledError(err)
	default:
		return NewInternalError(err)
	}
}

func (h *ErrorHandler) logError(stdErr *StandardError, fields map[string]interface{}) {
	if h.logger == nil {
		return
	}
	out := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": string(stdErr.Kind),
		"message":       stdErr.Message,
		"retryable":     stdErr.Retryable,
	}
	if len(stdErr.Detail) > 0 {
		out["detail"] = stdErr.Detail
	}
	for k, v := range fields {
		out[k] = v
	}

	// Local rejections are expected traffic.
	if stdErr.Local() || stdErr.Kind == KindParse {
		h.logger.Warn("Request rejected", out)
		return
	}
	h.logger.Error("Request failed", out)
}
