// internal/workers/resolution/resolve-period/loader.go
package resolveperiod

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

// CalendarCacheKey holds the shared trading-date snapshot in Redis.
const CalendarCacheKey = "calendar:trading_dates"

var ErrCalendarLoadFailed = stderrors.New("CALENDAR_LOAD_FAILED")

const (
	tradingDatesQuery = `SELECT DISTINCT trade_date FROM daily WHERE trade_date >= $1 ORDER BY trade_date`
	sameDayProbeQuery = `SELECT 1 FROM daily WHERE trade_date = $1 LIMIT 1`
	latestReportQuery = `SELECT MAX(end_date) FROM fina_indicator WHERE ts_code = $1 AND end_date LIKE $2`
)

// Loader reads trading dates and report periods from the market database.
// It is also the resolver's DataProbe and ReportSource.
type Loader struct {
	db          *sql.DB
	cache       *database.RedisClient
	ttl         time.Duration
	historyDays int
	logger      logger.Logger
}

func NewLoader(db *sql.DB, cache *database.RedisClient, ttl time.Duration, historyDays int, log logger.Logger) *Loader {
	return &Loader{db: db, cache: cache, ttl: ttl, historyDays: historyDays, logger: log}
}

// Load returns trading dates from the last historyDays, Redis first.
func (l *Loader) Load(ctx context.Context, today time.Time) ([]string, error) {
	if l.cache != nil {
		var cached []string
		err := l.cache.GetJSON(ctx, CalendarCacheKey, &cached)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
		if err != nil && !stderrors.Is(err, database.ErrCacheMiss) {
			l.logger.Warn("calendar cache read failed, using database", map[string]interface{}{"error": err.Error()})
		}
	}

	from := today.AddDate(0, 0, -l.historyDays).Format(DateLayout)
	rows, err := l.db.QueryContext(ctx, tradingDatesQuery, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalendarLoadFailed, err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCalendarLoadFailed, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalendarLoadFailed, err)
	}

	if l.cache != nil && len(dates) > 0 {
		if err := l.cache.SetJSON(ctx, CalendarCacheKey, dates, l.ttl); err != nil {
			l.logger.Warn("calendar cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return dates, nil
}

func (l *Loader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Del(ctx, CalendarCacheKey)
}

// HasData implements DataProbe.
func (l *Loader) HasData(ctx context.Context, date string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, sameDayProbeQuery, date).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LatestReportEnd implements ReportSource.
func (l *Loader) LatestReportEnd(ctx context.Context, code string, kind models.ReportKind) (string, bool, error) {
	pattern := "%"
	if suffix, ok := reportSuffix[kind]; ok {
		pattern = "%" + suffix
	}
	var end sql.NullString
	if err := l.db.QueryRowContext(ctx, latestReportQuery, code, pattern).Scan(&end); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if !end.Valid || end.String == "" {
		return "", false, nil
	}
	return end.String, true, nil
}
