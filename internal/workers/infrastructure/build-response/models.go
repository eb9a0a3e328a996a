// internal/workers/infrastructure/build-response/models.go
package buildresponse

import (
	"time"

	"query-router/internal/common/errors"
	"query-router/internal/models"
)

// Input is the terminal state of one request. Exactly one of Data and Error is set.
type Input struct {
	RequestID       string                `json:"requestId,omitempty"`
	Path            models.ExecutionPath  `json:"executionPath"`
	MatchedTemplate string                `json:"matchedTemplate,omitempty"`
	Data            interface{}           `json:"data,omitempty"`
	Error           *errors.StandardError `json:"error,omitempty"`
	StartedAt       time.Time             `json:"-"`
}

type Output struct {
	Envelope models.ResultEnvelope `json:"envelope"`
}
