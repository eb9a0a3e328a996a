// internal/workers/resolution/resolve-entity/handler.go
package resolveentity

import (
	"context"
	"fmt"

	"query-router/internal/common/logger"
)

const (
	TaskType = "resolve-entity"
)

type Handler struct {
	config     *Config
	resolver   *Resolver
	loader     *Loader
	shortNames map[string]string
	logger     logger.Logger
}

func NewHandler(config *Config, resolver *Resolver, loader *Loader, log logger.Logger) (*Handler, error) {
	shortNames, err := LoadShortNames(config.ShortNamesPath)
	if err != nil {
		return nil, err
	}
	return &Handler{
		config:     config,
		resolver:   resolver,
		loader:     loader,
		shortNames: shortNames,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

// Resolver exposes the live resolver to the extractor.
func (h *Handler) Resolver() *Resolver {
	return h.resolver
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Multiple {
		ents, serr := h.resolver.ResolveMany(input.Text)
		return &Output{Entities: ents, Error: serr}, nil
	}
	ent, serr := h.resolver.Resolve(input.Text)
	if serr != nil {
		return &Output{Error: serr}, nil
	}
	out := &Output{}
	out.Entities = append(out.Entities, ent)
	return out, nil
}

// Refresh reloads the identifier index and swaps it in. With force the
// shared Redis copy is dropped first.
func (h *Handler) Refresh(ctx context.Context, force bool) error {
	if h.loader == nil {
		return fmt.Errorf("resolve-entity: no loader configured")
	}
	if force {
		if err := h.loader.Invalidate(ctx); err != nil {
			h.logger.Warn("identifier cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	secs, err := h.loader.Load(ctx)
	if err != nil {
		return err
	}
	ix := NewIndex(secs, h.shortNames)
	h.resolver.Swap(ix)
	h.logger.Info("identifier index refreshed", map[string]interface{}{
		"securities": ix.Size(),
		"sectors":    len(ix.sectors),
	})
	return nil
}

// ShortNames returns the active short-name policy table.
func (h *Handler) ShortNames() map[string]string {
	return h.shortNames
}
