// internal/workers/ai-conversation/llm-fallback/handler.go
package llmfallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "query-router/internal/common/http"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

const (
	TaskType = "llm-fallback"
)

var (
	ErrGenAITimeout = errors.New("GENAI_TIMEOUT")
	ErrGenAIFailed  = errors.New("GENAI_FAILED")
	ErrInvalidHints = errors.New("INVALID_HINTS")
	errNotRetryable = errors.New("not retryable")
)

type Handler struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		// No client timeout; the context bounds every attempt.
		client: commonhttp.NewRateLimitedClient(0, config.RequestsPerSecond, config.Burst),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateHints(input.Hints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHints, err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	withSteps := h.config.IncludeSteps || input.IncludeSteps
	body, err := json.Marshal(generateRequest{
		Prompt:                  buildPrompt(input.Question, input.Hints),
		Hints:                   input.Hints,
		MaxTokens:               h.config.MaxTokens,
		Temperature:             h.config.Temperature,
		ReturnIntermediateSteps: withSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenAIFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			if ra, ok := lastErr.(*retryAfterError); ok && ra.after > backoff {
				backoff = ra.after
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, h.contextError(ctx, lastErr)
			}
		}

		out, err := h.attempt(ctx, body, withSteps)
		if err == nil {
			h.logger.Info("fallback generation completed", map[string]interface{}{
				"attempts":  attempt + 1,
				"stepCount": len(out.Steps),
			})
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, h.contextError(ctx, err)
		}
		if errors.Is(err, errNotRetryable) {
			break
		}
		h.logger.Warn("fallback attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return nil, fmt.Errorf("%w: %v", ErrGenAIFailed, lastErr)
}

type retryAfterError struct {
	status int
	after  time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

func (h *Handler) attempt(ctx context.Context, body []byte, withSteps bool) (*Output, error) {
	req, err := http.NewRequest(http.MethodPost, h.config.GenAIBaseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotRetryable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := h.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &retryAfterError{status: resp.StatusCode, after: commonhttp.RetryAfter(resp)}
	default:
		return nil, fmt.Errorf("%w: status %d", errNotRetryable, resp.StatusCode)
	}

	var apiResponse generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", errNotRetryable, err)
	}

	out := &Output{Raw: apiResponse.Output}
	if withSteps {
		for _, s := range apiResponse.IntermediateSteps {
			out.Steps = append(out.Steps, models.ToolStep{Action: s.Action, Input: s.ActionInput})
		}
	}
	return out, nil
}

func (h *Handler) contextError(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrGenAITimeout, cause)
}
