// internal/workers/resolution/extract-parameters/models.go
package extractparameters

import "query-router/internal/models"

type Input struct {
	Question models.Question `json:"question"`
	// Template is the matched template, nil when nothing matched.
	Template *models.Template `json:"template,omitempty"`
}

type Output struct {
	Bag *models.ParameterBag `json:"bag"`
}
