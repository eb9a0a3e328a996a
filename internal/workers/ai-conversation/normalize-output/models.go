// internal/workers/ai-conversation/normalize-output/models.go
package normalizeoutput

import (
	"query-router/internal/common/errors"
	"query-router/internal/models"
)

type Input struct {
	Raw   string            `json:"raw"`
	Steps []models.ToolStep `json:"steps,omitempty"`

	// IncludeSteps enables the tool-block recognizer for this input even when
	// the handler default is off.
	IncludeSteps bool `json:"includeSteps,omitempty"`
}

type Output struct {
	Answer *models.FinalAnswer    `json:"answer,omitempty"`
	Error  *errors.StandardError `json:"error,omitempty"`
}
