// internal/workers/data-access/query-elasticsearch/models.go
package queryelasticsearch

import "query-router/internal/models"

type Input struct {
	Template *models.Template     `json:"template"`
	Bag      *models.ParameterBag `json:"bag"`
}

type Output struct {
	Result    models.QueryResult `json:"result"`
	TotalHits int64              `json:"totalHits"`
	MaxScore  float64            `json:"maxScore"`
}
