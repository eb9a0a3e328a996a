// internal/pipeline/errors.go
package pipeline

import (
	"context"
	stderrors "errors"

	"query-router/internal/common/errors"
	"query-router/internal/models"
	llmfallback "query-router/internal/workers/ai-conversation/llm-fallback"
	queryelasticsearch "query-router/internal/workers/data-access/query-elasticsearch"
	querypostgresql "query-router/internal/workers/data-access/query-postgresql"
)

// executionError maps executor sentinels onto the public taxonomy.
func executionError(ctx context.Context, path models.ExecutionPath, template, service string, err error) *errors.StandardError {
	if se, ok := errors.As(err); ok {
		return se
	}
	p := string(path)
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.NewRequestCancelledError(err)
	case stderrors.Is(err, querypostgresql.ErrNoData),
		stderrors.Is(err, queryelasticsearch.ErrNoHits):
		return errors.NewNoDataFoundError(p, template)
	case stderrors.Is(err, querypostgresql.ErrQueryTimeout),
		stderrors.Is(err, queryelasticsearch.ErrSearchTimeout),
		stderrors.Is(err, llmfallback.ErrGenAITimeout),
		stderrors.Is(err, context.DeadlineExceeded):
		if stderrors.Is(ctx.Err(), context.Canceled) {
			return errors.NewRequestCancelledError(err)
		}
		return errors.NewExecutionTimeoutError(p, err)
	case stderrors.Is(err, llmfallback.ErrInvalidHints):
		return errors.NewInternalError(err)
	default:
		return errors.NewUpstreamFailureError(p, service, err)
	}
}

// interrupted reports a cancelled or expired request between stages.
func interrupted(ctx context.Context, path models.ExecutionPath) *errors.StandardError {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewExecutionTimeoutError(string(path), err)
	default:
		return errors.NewRequestCancelledError(err)
	}
}
