// internal/workers/data-access/query-elasticsearch/handler.go
package queryelasticsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/workers/data-access/query-elasticsearch/queries"
)

const (
	TaskType = "query-elasticsearch"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
	ErrNoHits            = errors.New("NO_HITS")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Template == nil || input.Bag == nil {
		return nil, errors.New("input cannot be nil")
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	aq := h.buildQuery(input.Bag)
	result, err := queries.Execute(ctx, h.client, aq)
	if err != nil {
		var missing *queries.IndexMissingError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, err)
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, ctx.Err()
		case errors.As(err, &missing):
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, missing.Index)
		}
		h.logger.Error("search failed", map[string]interface{}{
			"index": aq.Index,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrSearchQueryFailed, err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHits, input.Template.Name)
	}

	h.logger.Debug("search executed", map[string]interface{}{
		"template":  input.Template.Name,
		"totalHits": result.TotalHits,
		"took":      result.Took,
	})
	return &Output{
		Result: models.QueryResult{
			Template:        input.Template.Name,
			Rows:            result.Data,
			RowCount:        len(result.Data),
			ExecutionTimeMs: result.Took,
			Period:          input.Bag.Period,
		},
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
	}, nil
}

func (h *Handler) buildQuery(bag *models.ParameterBag) queries.AnnouncementQuery {
	aq := queries.AnnouncementQuery{
		Index:    h.config.Index,
		Codes:    bag.Codes(),
		Keywords: bag.Residue,
		Size:     bag.Limit,
	}
	if aq.Size < 1 || aq.Size > h.config.MaxSize {
		aq.Size = h.config.MaxSize
	}
	if bag.Period != nil && bag.Period.Kind != models.PeriodReport {
		aq.Start, aq.End = bag.Period.Bounds()
	}
	return aq
}
