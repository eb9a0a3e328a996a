// internal/workers/data-access/query-postgresql/models.go
package querypostgresql

import "query-router/internal/models"

type Input struct {
	Template *models.Template     `json:"template"`
	Bag      *models.ParameterBag `json:"bag"`
}

type Output struct {
	Result models.QueryResult `json:"result"`
}
