// internal/workers/routing/select-template/handler.go
package selecttemplate

import (
	"context"

	"query-router/internal/common/logger"
)

const (
	TaskType = "select-template"
)

type Handler struct {
	config  *Config
	catalog *Catalog
	logger  logger.Logger
}

func NewHandler(config *Config, catalog *Catalog, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		catalog: catalog,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Catalog() *Catalog {
	return h.catalog
}

// Execute honours a declared hint naming a registered template, otherwise
// runs the ordered matcher. No match is a normal outcome.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if input.DeclaredHint != "" {
		if t, ok := h.catalog.Lookup(input.DeclaredHint); ok {
			h.logger.Debug("template selected by declared hint", map[string]interface{}{"template": t.Name})
			return &Output{Template: t, Matched: true, ByHint: true}, nil
		}
		h.logger.Warn("unknown declared hint ignored", map[string]interface{}{"declaredHint": input.DeclaredHint})
	}

	t, ok := h.catalog.Match(input.Normalized)
	if !ok {
		h.logger.Debug("no template matched", nil)
		return &Output{}, nil
	}
	h.logger.Debug("template matched", map[string]interface{}{"template": t.Name})
	return &Output{Template: t, Matched: true}, nil
}
