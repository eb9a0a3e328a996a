// internal/workers/data-access/query-postgresql/handler.go
package querypostgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/workers/data-access/query-postgresql/queries"
)

const (
	TaskType = "query-postgresql"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
	ErrNoData               = errors.New("NO_DATA")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Supports reports whether a SQL template is registered under name.
func (h *Handler) Supports(name string) bool {
	_, ok := queries.Registry[name]
	return ok
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Template == nil || input.Bag == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	name := input.Template.Name
	if !h.Supports(name) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, name)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := queries.Execute(ctx, h.db, name, queries.FromBag(input.Bag))
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrQueryTimeout, err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		h.logger.Error("query failed", map[string]interface{}{
			"template": name,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrQueryExecutionFailed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, name)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"template":   name,
		"rowCount":   len(rows),
		"durationMs": elapsed,
	})
	return &Output{Result: models.QueryResult{
		Template:        name,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: elapsed,
		Period:          input.Bag.Period,
	}}, nil
}
