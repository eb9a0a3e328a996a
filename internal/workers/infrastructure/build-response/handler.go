// internal/workers/infrastructure/build-response/handler.go
package buildresponse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	stderrors "query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/common/validation"
	"query-router/internal/models"
)

const TaskType = "build-response"

var ErrEnvelopeValidationFailed = errors.New("ENVELOPE_VALIDATION_FAILED")

var envelopeSchema = validation.MustCompile("result-envelope", `{
	"type": "object",
	"required": ["requestId", "success", "executionPath", "metadata"],
	"properties": {
		"requestId": {"type": "string", "minLength": 1},
		"success": {"type": "boolean"},
		"executionPath": {"enum": ["fast", "fallback"]},
		"matchedTemplate": {"type": "string"},
		"error": {
			"type": "object",
			"required": ["code", "message"],
			"properties": {
				"code": {"type": "string", "pattern": "^[A-Z_]+$"},
				"message": {"type": "string", "minLength": 1},
				"detail": {"type": "object", "additionalProperties": {"type": "string"}}
			}
		},
		"metadata": {
			"type": "object",
			"required": ["timestamp", "version", "durationMs"],
			"properties": {
				"durationMs": {"type": "integer", "minimum": 0}
			}
		}
	},
	"oneOf": [
		{"properties": {"success": {"const": true}}, "required": ["data"], "not": {"required": ["error"]}},
		{"properties": {"success": {"const": false}}, "required": ["error"], "not": {"required": ["data"]}}
	]
}`)

type Handler struct {
	config *Config
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	env, err := h.Build(input)
	if err != nil {
		return nil, err
	}
	return &Output{Envelope: *env}, nil
}

// Build assembles the envelope and checks it against the response schema.
func (h *Handler) Build(input *Input) (*models.ResultEnvelope, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	now := h.now()
	var duration int64
	if !input.StartedAt.IsZero() {
		duration = now.Sub(input.StartedAt).Milliseconds()
	}

	env := &models.ResultEnvelope{
		RequestID:       requestID,
		Success:         input.Error == nil,
		ExecutionPath:   input.Path,
		MatchedTemplate: input.MatchedTemplate,
		Metadata: models.EnvelopeMetadata{
			Timestamp:  now.UTC().Format(time.RFC3339),
			Version:    h.config.AppVersion,
			DurationMs: duration,
		},
	}
	if input.Error != nil {
		env.Error = envelopeError(input.Error)
	} else {
		env.Data = input.Data
	}

	res, err := envelopeSchema.Validate(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeValidationFailed, err)
	}
	if !res.Valid {
		h.logger.Error("envelope failed schema check", map[string]interface{}{
			"requestId": requestID,
			"errors":    res.GetErrorMessages(),
		})
		return nil, fmt.Errorf("%w: %s", ErrEnvelopeValidationFailed, strings.Join(res.GetErrorMessages(), "; "))
	}
	return env, nil
}

// Fallback builds an INTERNAL_ERROR envelope without the schema round trip.
// It is used when Build itself failed.
func (h *Handler) Fallback(requestID string, path models.ExecutionPath, cause error) *models.ResultEnvelope {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &models.ResultEnvelope{
		RequestID:     requestID,
		Success:       false,
		Error:         envelopeError(stderrors.NewInternalError(cause)),
		ExecutionPath: path,
		Metadata: models.EnvelopeMetadata{
			Timestamp: h.now().UTC().Format(time.RFC3339),
			Version:   h.config.AppVersion,
		},
	}
}

func envelopeError(e *stderrors.StandardError) *models.EnvelopeError {
	return &models.EnvelopeError{
		Code:    string(e.Code),
		Message: e.Message,
		Detail:  e.Detail,
	}
}
