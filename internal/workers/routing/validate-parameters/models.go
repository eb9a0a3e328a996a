// internal/workers/routing/validate-parameters/models.go
package validateparameters

import "query-router/internal/models"

type Input struct {
	Bag      *models.ParameterBag `json:"bag"`
	Template *models.Template     `json:"template"`
}

type Output struct {
	Result models.ValidationResult `json:"result"`
}
