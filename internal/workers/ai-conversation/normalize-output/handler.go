// internal/workers/ai-conversation/normalize-output/handler.go
package normalizeoutput

import (
	"context"
	"strings"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

const (
	TaskType = "normalize-output"
)

type Handler struct {
	config      *Config
	recognizers []recognizer
	logger      logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	chain := []recognizer{
		{name: RecognizerMarker, fn: recognizeMarker},
		{name: RecognizerToolBlock, fn: recognizeToolBlock, steps: true},
		{name: RecognizerHeuristic, fn: recognizeHeuristic},
		{name: RecognizerVerbatim, fn: verbatim(config.MinVerbatimLength)},
	}
	return &Handler{
		config:      config,
		recognizers: chain,
		logger:      log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer, serr := h.Normalize(input)
	return &Output{Answer: answer, Error: serr}, nil
}

// Normalize runs the recognizer chain and stops at the first claim. Tool
// steps are kept when the config or the input asks for them.
func (h *Handler) Normalize(input *Input) (*models.FinalAnswer, *errors.StandardError) {
	raw := strings.TrimSpace(input.Raw)
	withSteps := h.config.IncludeSteps || input.IncludeSteps
	if raw != "" {
		for _, r := range h.recognizers {
			if r.steps && !withSteps {
				continue
			}
			answer, ok := r.fn(raw, input)
			if !ok {
				continue
			}
			if !withSteps {
				answer.Steps = nil
			} else if len(answer.Steps) == 0 {
				answer.Steps = input.Steps
			}
			h.logger.Debug("generator output recognized", map[string]interface{}{
				"recognizer": r.name,
				"length":     len(answer.Text),
			})
			return answer, nil
		}
	}
	return nil, errors.NewOutputUnparseableError(preview(raw, h.config.PreviewLength))
}

func preview(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
