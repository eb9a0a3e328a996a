// internal/workers/resolution/resolve-period/handler.go
package resolveperiod

import (
	"context"
	"fmt"

	"query-router/internal/common/logger"
)

const (
	TaskType = "resolve-period"
)

type Handler struct {
	config   *Config
	resolver *Resolver
	loader   *Loader
	logger   logger.Logger
}

func NewHandler(config *Config, resolver *Resolver, loader *Loader, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		resolver: resolver,
		loader:   loader,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Resolver() *Resolver {
	return h.resolver
}

// Execute resolves "latest" or "last Count Units" relative to Anchor.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Unit == "" {
		if input.Anchor == "" {
			p, serr := h.resolver.ResolveLatest(ctx)
			return &Output{Period: p, Error: serr}, nil
		}
		p, serr := h.resolver.ResolveDate(ctx, input.Anchor)
		return &Output{Period: p, Error: serr}, nil
	}
	p, serr := h.resolver.RangeForPeriod(ctx, input.Unit, input.Count, input.Anchor)
	return &Output{Period: p, Error: serr}, nil
}

// Refresh reloads the calendar snapshot and clears the resolution cache.
func (h *Handler) Refresh(ctx context.Context, force bool) error {
	if h.loader == nil {
		return fmt.Errorf("resolve-period: no loader configured")
	}
	if force {
		if err := h.loader.Invalidate(ctx); err != nil {
			h.logger.Warn("calendar cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	dates, err := h.loader.Load(ctx, h.resolver.now().In(h.config.Location))
	if err != nil {
		return err
	}
	cal := NewCalendar(dates)
	h.resolver.Swap(cal)
	h.logger.Info("trading calendar refreshed", map[string]interface{}{
		"dates":    cal.Len(),
		"earliest": cal.Earliest(),
		"last":     cal.Last(),
	})
	return nil
}
