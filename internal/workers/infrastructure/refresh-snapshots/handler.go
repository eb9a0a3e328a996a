// internal/workers/infrastructure/refresh-snapshots/handler.go
package refreshsnapshots

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
)

const TaskType = "refresh-snapshots"

var ErrRefreshFailed = errors.New("SNAPSHOT_REFRESH_FAILED")

// Source reloads one snapshot and swaps it in.
type Source interface {
	Refresh(ctx context.Context, force bool) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, force bool) error

func (f SourceFunc) Refresh(ctx context.Context, force bool) error { return f(ctx, force) }

type namedSource struct {
	name string
	src  Source
}

// Handler refreshes every registered snapshot in parallel. Concurrent callers
// share one refresh.
type Handler struct {
	config  *Config
	sources []namedSource
	group   singleflight.Group
	logger  logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	lastRun time.Time
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Register adds a snapshot source. It must be called before Start.
func (h *Handler) Register(name string, src Source) *Handler {
	h.sources = append(h.sources, namedSource{name: name, src: src})
	return h
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	force := input != nil && input.Force
	started := time.Now()

	v, err, shared := h.group.Do("refresh", func() (interface{}, error) {
		return h.refreshAll(ctx, force)
	})
	h.mu.Lock()
	h.lastErr = err
	h.lastRun = time.Now()
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Output{
		Refreshed:  v.([]string),
		DurationMs: time.Since(started).Milliseconds(),
		Shared:     shared,
	}, nil
}

// Refresh is Execute without the output, for callers that only need the error.
func (h *Handler) Refresh(ctx context.Context, force bool) error {
	_, err := h.Execute(ctx, &Input{Force: force})
	return err
}

func (h *Handler) refreshAll(ctx context.Context, force bool) ([]string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range h.sources {
		g.Go(func() error {
			if err := s.src.Refresh(gctx, force); err != nil {
				metrics.SnapshotRefreshes.WithLabelValues(s.name, "error").Inc()
				h.logger.Error("snapshot refresh failed", map[string]interface{}{
					"snapshot": s.name,
					"error":    err.Error(),
				})
				return fmt.Errorf("%w: %s: %w", ErrRefreshFailed, s.name, err)
			}
			metrics.SnapshotRefreshes.WithLabelValues(s.name, "ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(h.sources))
	for i, s := range h.sources {
		names[i] = s.name
	}
	h.logger.Info("snapshots refreshed", map[string]interface{}{"snapshots": names, "force": force})
	return names, nil
}

// Start runs one refresh immediately and then one per Interval until Stop
// or ctx is done. The first refresh error is returned; the loop still starts.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.done != nil {
		h.mu.Unlock()
		return fmt.Errorf("refresher already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	err := h.Refresh(ctx, false)

	go func() {
		defer close(done)
		if h.config.Interval <= 0 {
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(h.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := h.Refresh(ctx, false); err != nil && ctx.Err() == nil {
					h.logger.Warn("periodic refresh failed, keeping previous snapshots", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()
	return err
}

// Stop cancels the background loop and waits for it to exit.
func (h *Handler) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status reports the outcome of the most recent refresh.
func (h *Handler) Status() (time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRun, h.lastErr
}
