package queryelasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/workers/data-access/query-elasticsearch/queries"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Index:   "announcements",
		MaxSize: 50,
	}
}

// createTestCluster serves every request with handle and returns a client pointed at it.
func createTestCluster(t *testing.T, handle http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return client
}

func announcementInput() *Input {
	return &Input{
		Template: &models.Template{Name: "announcement_search", Executor: models.ExecutorElasticsearch},
		Bag: &models.ParameterBag{
			Entities: []models.ResolvedEntity{{Kind: models.EntitySecurity, Code: "600519.SH", Name: "贵州茅台"}},
			Period:   models.RangePeriod("20240101", "20240314"),
			Limit:    10,
			HasLimit: true,
			Residue:  "分红",
		},
	}
}

const twoHits = `{
	"took": 3,
	"hits": {
		"total": {"value": 2, "relation": "eq"},
		"max_score": 1.7,
		"hits": [
			{"_source": {"ts_code": "600519.SH", "ann_date": "20240308", "title": "2023年度利润分配方案公告"}},
			{"_source": {"ts_code": "600519.SH", "ann_date": "20240201", "title": "关于回购股份的进展公告"}}
		]
	}
}`

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var captured map[string]interface{}
	var path string
	client := createTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = io.WriteString(w, twoHits)
	})

	h := NewHandler(createTestConfig(), client, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), announcementInput())
	require.NoError(t, err)

	assert.Equal(t, "/announcements/_search", path)
	assert.Equal(t, "announcement_search", output.Result.Template)
	assert.Equal(t, 2, output.Result.RowCount)
	assert.Equal(t, int64(2), output.TotalHits)
	assert.InDelta(t, 1.7, output.MaxScore, 1e-9)
	assert.Equal(t, "20240308", output.Result.Rows[0]["ann_date"])

	query := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := query["filter"].([]interface{})
	require.Len(t, filters, 2)
	assert.Equal(t, []interface{}{"600519.SH"}, filters[0].(map[string]interface{})["terms"].(map[string]interface{})["ts_code"])
	window := filters[1].(map[string]interface{})["range"].(map[string]interface{})["ann_date"].(map[string]interface{})
	assert.Equal(t, "20240101", window["gte"])
	assert.Equal(t, "20240314", window["lte"])
	assert.Contains(t, query, "should")
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		input       func() *Input
		expectedErr error
	}{
		{
			name:        "no hits",
			status:      http.StatusOK,
			body:        `{"hits": {"total": {"value": 0}, "max_score": null, "hits": []}}`,
			input:       announcementInput,
			expectedErr: ErrNoHits,
		},
		{
			name:        "missing index",
			status:      http.StatusNotFound,
			body:        `{"error": {"type": "index_not_found_exception"}, "status": 404}`,
			input:       announcementInput,
			expectedErr: ErrIndexNotFound,
		},
		{
			name:        "cluster error",
			status:      http.StatusInternalServerError,
			body:        `{"error": {"type": "search_phase_execution_exception"}, "status": 500}`,
			input:       announcementInput,
			expectedErr: ErrSearchQueryFailed,
		},
		{
			name:   "no security code",
			status: http.StatusOK,
			body:   twoHits,
			input: func() *Input {
				in := announcementInput()
				in.Bag.Entities = nil
				return in
			},
			expectedErr: queries.ErrMissingCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := createTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			h := NewHandler(createTestConfig(), client, logger.NewTestLogger(t))

			output, err := h.Execute(context.Background(), tt.input())
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	client := createTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = io.WriteString(w, twoHits)
	})

	config := createTestConfig()
	config.Timeout = 50 * time.Millisecond
	h := NewHandler(config, client, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), announcementInput())
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrSearchTimeout)
}

// ==========================
// Query Building
// ==========================

func TestBuildQuery_SizeClamp(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewNoOpLogger())

	tests := []struct {
		name     string
		limit    int
		wantSize int
	}{
		{name: "within bounds", limit: 10, wantSize: 10},
		{name: "unset", limit: 0, wantSize: 50},
		{name: "above max", limit: 500, wantSize: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aq := h.buildQuery(&models.ParameterBag{Limit: tt.limit})
			assert.Equal(t, tt.wantSize, aq.Size)
		})
	}

	aq := h.buildQuery(&models.ParameterBag{Period: models.ReportPeriod(models.ReportAnnual, "20231231")})
	assert.Empty(t, aq.Start, "report periods do not bound announcement dates")
}

func TestBuildAnnouncementSearch_Validation(t *testing.T) {
	_, err := queries.BuildAnnouncementSearch(queries.AnnouncementQuery{Codes: []string{"600519.SH"}})
	assert.ErrorIs(t, err, queries.ErrMissingIndex)

	req, err := queries.BuildAnnouncementSearch(queries.AnnouncementQuery{Index: "announcements", Codes: []string{"600519.SH"}, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"announcements"}, req.Index)
	assert.Equal(t, 5, *req.Size)
}
