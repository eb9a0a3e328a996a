// internal/workers/data-access/query-elasticsearch/queries/builders.go
package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex = errors.New("index name is required")
	ErrMissingCode  = errors.New("at least one security code is required")
)

// AnnouncementQuery selects disclosures for securities within an announcement date window.
type AnnouncementQuery struct {
	Index    string
	Codes    []string
	Start    string
	End      string
	Keywords string
	Size     int
}

// BuildAnnouncementSearch builds a filtered search sorted newest first.
// Keywords only boost relevance, they never exclude a filing.
func BuildAnnouncementSearch(aq AnnouncementQuery) (*esapi.SearchRequest, error) {
	if aq.Index == "" {
		return nil, ErrMissingIndex
	}
	if len(aq.Codes) == 0 {
		return nil, ErrMissingCode
	}

	body, err := json.Marshal(buildAnnouncementQuery(aq))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	size := aq.Size
	return &esapi.SearchRequest{
		Index: []string{aq.Index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

func buildAnnouncementQuery(aq AnnouncementQuery) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"terms": map[string]interface{}{"ts_code": aq.Codes},
		},
	}

	if aq.Start != "" || aq.End != "" {
		window := map[string]interface{}{"format": "yyyyMMdd"}
		if aq.Start != "" {
			window["gte"] = aq.Start
		}
		if aq.End != "" {
			window["lte"] = aq.End
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"ann_date": window},
		})
	}

	boolQuery := map[string]interface{}{
		"filter": filterClauses,
	}
	if aq.Keywords != "" {
		boolQuery["should"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  aq.Keywords,
					"fields": []string{"title^3", "content"},
					"type":   "best_fields",
				},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"ann_date": map[string]interface{}{"order": "desc"}},
			"_score",
		},
		"_source": []string{"ts_code", "name", "ann_date", "title", "url", "type"},
	}
}
