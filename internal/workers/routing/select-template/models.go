// internal/workers/routing/select-template/models.go
package selecttemplate

import "query-router/internal/models"

type Input struct {
	// Normalized is question text after temporal and quantity normalization.
	Normalized   string `json:"normalized"`
	DeclaredHint string `json:"declaredHint,omitempty"`
}

type Output struct {
	Template *models.Template `json:"template,omitempty"`
	Matched  bool             `json:"matched"`
	// ByHint is set when the declared hint chose the template.
	ByHint bool `json:"byHint,omitempty"`
}
