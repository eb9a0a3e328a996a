// internal/workers/resolution/resolve-entity/loader.go
package resolveentity

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

// IndexCacheKey holds the shared identifier snapshot in Redis.
const IndexCacheKey = "securities:index"

var ErrIndexLoadFailed = stderrors.New("INDEX_LOAD_FAILED")

const listedSecuritiesQuery = `
	SELECT ts_code, symbol, name, COALESCE(industry, ''), COALESCE(market, ''), list_status
	FROM stock_basic
	WHERE list_status = 'L'
	ORDER BY ts_code`

// Loader reads the identifier index through a Redis read-through cache.
type Loader struct {
	db     *sql.DB
	cache  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewLoader(db *sql.DB, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *Loader {
	return &Loader{db: db, cache: cache, ttl: ttl, logger: log}
}

func (l *Loader) Load(ctx context.Context) ([]models.Security, error) {
	if l.cache != nil {
		var cached []models.Security
		err := l.cache.GetJSON(ctx, IndexCacheKey, &cached)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
		if err != nil && !stderrors.Is(err, database.ErrCacheMiss) {
			l.logger.Warn("identifier cache read failed, using database", map[string]interface{}{"error": err.Error()})
		}
	}

	rows, err := l.db.QueryContext(ctx, listedSecuritiesQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoadFailed, err)
	}
	defer rows.Close()

	var out []models.Security
	for rows.Next() {
		var s models.Security
		if err := rows.Scan(&s.Code, &s.Symbol, &s.Name, &s.Industry, &s.Market, &s.ListStatus); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexLoadFailed, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoadFailed, err)
	}

	if l.cache != nil && len(out) > 0 {
		if err := l.cache.SetJSON(ctx, IndexCacheKey, out, l.ttl); err != nil {
			l.logger.Warn("identifier cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return out, nil
}

// Invalidate drops the shared snapshot so the next Load hits the database.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Del(ctx, IndexCacheKey)
}
