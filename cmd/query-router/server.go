// cmd/query-router/server.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"query-router/internal/common/errors"
	"query-router/internal/models"
	refreshsnapshots "query-router/internal/workers/infrastructure/refresh-snapshots"
)

const maxRequestBytes = 64 << 10

type questionHandler interface {
	Handle(ctx context.Context, q models.Question) *models.ResultEnvelope
}

type snapshotRefresher interface {
	Execute(ctx context.Context, input *refreshsnapshots.Input) (*refreshsnapshots.Output, error)
	Status() (time.Time, error)
}

type queryRequest struct {
	QuestionText string `json:"questionText"`
	DeclaredHint string `json:"declaredHint,omitempty"`
	IncludeSteps bool   `json:"includeSteps,omitempty"`
	// Deadline is a Go duration string such as "5s".
	Deadline string `json:"deadline,omitempty"`
}

type server struct {
	questions questionHandler
	refresher snapshotRefresher
	log       *zap.Logger
}

func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	mux.HandleFunc("POST /admin/refresh", s.handleRefresh)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	q := models.Question{
		Text:         req.QuestionText,
		DeclaredHint: strings.TrimSpace(req.DeclaredHint),
		IncludeSteps: req.IncludeSteps,
	}
	if req.Deadline != "" {
		d, err := time.ParseDuration(req.Deadline)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid deadline: " + req.Deadline})
			return
		}
		q.Deadline = d
	}

	env := s.questions.Handle(r.Context(), q)
	status := http.StatusOK
	if env.Error != nil {
		status = statusFor(errors.ErrorCode(env.Error.Code))
	}
	writeJSON(w, status, env)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	out, err := s.refresher.Execute(r.Context(), &refreshsnapshots.Input{Force: force})
	if err != nil {
		s.log.Error("manual refresh failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	last, err := s.refresher.Status()
	switch {
	case last.IsZero():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	case err != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "refreshedAt": last.UTC().Format(time.RFC3339)})
	}
}

// statusFor maps an error kind onto an HTTP status. The envelope carries the detail.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeExecutionTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUpstreamFailure, errors.ErrCodeOutputUnparseable:
		return http.StatusBadGateway
	case errors.ErrCodeNoDataFound:
		return http.StatusNotFound
	case errors.ErrCodeRequestCancelled:
		return 499
	case errors.ErrCodeEmptyQuestion:
		return http.StatusBadRequest
	}
	switch errors.GetErrorCategory(code) {
	case errors.KindEntity, errors.KindTemporal, errors.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
