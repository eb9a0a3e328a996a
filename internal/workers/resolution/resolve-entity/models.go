// internal/workers/resolution/resolve-entity/models.go
package resolveentity

import (
	"query-router/internal/common/errors"
	"query-router/internal/models"
)

type Input struct {
	Text string `json:"text"`
	// Multiple resolves every entity in the text instead of treating it as one token.
	Multiple bool `json:"multiple,omitempty"`
}

type Output struct {
	Entities []models.ResolvedEntity `json:"entities,omitempty"`
	Error    *errors.StandardError   `json:"error,omitempty"`
}

type shortNameFile struct {
	ShortNames map[string]string `yaml:"short_names"`
}
