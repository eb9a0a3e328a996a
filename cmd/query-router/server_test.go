package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"query-router/internal/common/errors"
	"query-router/internal/models"
	refreshsnapshots "query-router/internal/workers/infrastructure/refresh-snapshots"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeQuestions struct {
	last models.Question
	env  *models.ResultEnvelope
}

func (f *fakeQuestions) Handle(ctx context.Context, q models.Question) *models.ResultEnvelope {
	f.last = q
	return f.env
}

type fakeRefresher struct {
	force   bool
	err     error
	lastRun time.Time
	lastErr error
}

func (f *fakeRefresher) Execute(ctx context.Context, input *refreshsnapshots.Input) (*refreshsnapshots.Output, error) {
	f.force = input.Force
	if f.err != nil {
		return nil, f.err
	}
	return &refreshsnapshots.Output{Refreshed: []string{"entities", "calendar"}}, nil
}

func (f *fakeRefresher) Status() (time.Time, error) {
	return f.lastRun, f.lastErr
}

func createTestServer(q *fakeQuestions, r *fakeRefresher) http.Handler {
	return newMux(&server{questions: q, refresher: r, log: zap.NewNop()})
}

func fastEnvelope() *models.ResultEnvelope {
	return &models.ResultEnvelope{
		RequestID:       "req-1",
		Success:         true,
		Data:            models.QueryResult{Template: "price_lookup", RowCount: 1},
		ExecutionPath:   models.PathFast,
		MatchedTemplate: "price_lookup",
	}
}

func failedEnvelope(code errors.ErrorCode) *models.ResultEnvelope {
	return &models.ResultEnvelope{
		RequestID:     "req-2",
		Error:         &models.EnvelopeError{Code: string(code), Message: "failed"},
		ExecutionPath: models.PathFast,
	}
}

// ==========================
// Query endpoint
// ==========================

func TestServer_Query(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		env            *models.ResultEnvelope
		wantStatus     int
		validateOutput func(t *testing.T, q models.Question, body map[string]interface{})
	}{
		{
			name:       "fast path success",
			body:       `{"questionText":"贵州茅台最新股价"}`,
			env:        fastEnvelope(),
			wantStatus: http.StatusOK,
			validateOutput: func(t *testing.T, q models.Question, body map[string]interface{}) {
				assert.Equal(t, "贵州茅台最新股价", q.Text)
				assert.Zero(t, q.Deadline)
				assert.Equal(t, true, body["success"])
				assert.Equal(t, "price_lookup", body["matchedTemplate"])
			},
		},
		{
			name:       "hint and deadline forwarded",
			body:       `{"questionText":"贵州茅台估值","declaredHint":" valuation ","deadline":"5s"}`,
			env:        fastEnvelope(),
			wantStatus: http.StatusOK,
			validateOutput: func(t *testing.T, q models.Question, body map[string]interface{}) {
				assert.Equal(t, "valuation", q.DeclaredHint)
				assert.Equal(t, 5*time.Second, q.Deadline)
				assert.False(t, q.IncludeSteps)
			},
		},
		{
			name:       "tool steps requested",
			body:       `{"questionText":"贵州茅台的经营情况怎么看","includeSteps":true}`,
			env:        fastEnvelope(),
			wantStatus: http.StatusOK,
			validateOutput: func(t *testing.T, q models.Question, body map[string]interface{}) {
				assert.True(t, q.IncludeSteps)
			},
		},
		{
			name:       "entity rejection",
			body:       `{"questionText":"茅台最新股价"}`,
			env:        failedEnvelope(errors.ErrCodeEntityAmbiguousShortName),
			wantStatus: http.StatusUnprocessableEntity,
			validateOutput: func(t *testing.T, q models.Question, body map[string]interface{}) {
				errBody := body["error"].(map[string]interface{})
				assert.Equal(t, "ENTITY_AMBIGUOUS_SHORT_NAME", errBody["code"])
			},
		},
		{
			name:       "upstream failure",
			body:       `{"questionText":"贵州茅台和五粮液哪个更有竞争优势"}`,
			env:        failedEnvelope(errors.ErrCodeUpstreamFailure),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuestions{env: tt.env}
			srv := createTestServer(q, &fakeRefresher{})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(tt.body))
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.validateOutput != nil {
				tt.validateOutput(t, q.last, body)
			}
		})
	}
}

func TestServer_QueryBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"questionText":`},
		{name: "bad deadline", body: `{"questionText":"x","deadline":"soon"}`},
		{name: "negative deadline", body: `{"questionText":"x","deadline":"-1s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuestions{env: fastEnvelope()}
			rec := httptest.NewRecorder()
			createTestServer(q, &fakeRefresher{}).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, q.last.Text, "controller must not be called")
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	createTestServer(&fakeQuestions{}, &fakeRefresher{}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ==========================
// Admin and probes
// ==========================

func TestServer_Refresh(t *testing.T) {
	r := &fakeRefresher{}
	srv := createTestServer(&fakeQuestions{}, r)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/refresh?force=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.force)
	assert.Contains(t, rec.Body.String(), "calendar")

	r.err = refreshsnapshots.ErrRefreshFailed
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, r.force)
}

func TestServer_Ready(t *testing.T) {
	tests := []struct {
		name       string
		refresher  *fakeRefresher
		wantStatus int
		wantState  string
	}{
		{name: "before first refresh", refresher: &fakeRefresher{}, wantStatus: http.StatusServiceUnavailable, wantState: "loading"},
		{
			name:       "last refresh failed",
			refresher:  &fakeRefresher{lastRun: time.Now(), lastErr: refreshsnapshots.ErrRefreshFailed},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
		},
		{name: "ready", refresher: &fakeRefresher{lastRun: time.Now()}, wantStatus: http.StatusOK, wantState: "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			createTestServer(&fakeQuestions{}, tt.refresher).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body["status"])
		})
	}
}

func TestServer_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	createTestServer(&fakeQuestions{}, &fakeRefresher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeEmptyQuestion, http.StatusBadRequest},
		{errors.ErrCodeEntityNotFound, http.StatusUnprocessableEntity},
		{errors.ErrCodeRangeInverted, http.StatusUnprocessableEntity},
		{errors.ErrCodeLimitOutOfRange, http.StatusUnprocessableEntity},
		{errors.ErrCodeNoDataFound, http.StatusNotFound},
		{errors.ErrCodeExecutionTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeUpstreamFailure, http.StatusBadGateway},
		{errors.ErrCodeOutputUnparseable, http.StatusBadGateway},
		{errors.ErrCodeRequestCancelled, 499},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.code))
		})
	}
}
