// internal/workers/resolution/resolve-period/resolver.go
package resolveperiod

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

// DataProbe reports whether market data exists for a date newer than the snapshot.
type DataProbe interface {
	HasData(ctx context.Context, date string) (bool, error)
}

// ReportSource returns the most recent disclosed fiscal period end for a security.
type ReportSource interface {
	LatestReportEnd(ctx context.Context, code string, kind models.ReportKind) (string, bool, error)
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// generation is one cache epoch. Invalidation swaps in an empty one.
type generation struct {
	entries sync.Map
}

// Resolver answers calendar and period questions from an atomically swapped
// snapshot. Every successful resolution is memoized by its input key.
type Resolver struct {
	config   *Config
	calendar atomic.Pointer[Calendar]
	cache    atomic.Pointer[generation]
	probe    DataProbe
	reports  ReportSource
	logger   logger.Logger
	now      func() time.Time
}

func NewResolver(config *Config, cal *Calendar, probe DataProbe, reports ReportSource, log logger.Logger) *Resolver {
	if cal == nil {
		cal = NewCalendar(nil)
	}
	r := &Resolver{
		config:  config,
		probe:   probe,
		reports: reports,
		logger:  log,
		now:     time.Now,
	}
	r.calendar.Store(cal)
	r.cache.Store(&generation{})
	return r
}

// WithClock overrides the wall clock, for tests and offline tools.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	r.Invalidate()
	return r
}

// Swap installs a new calendar and drops every memoized resolution.
func (r *Resolver) Swap(cal *Calendar) {
	r.calendar.Store(cal)
	r.Invalidate()
}

// Invalidate drops the whole resolution cache at once.
func (r *Resolver) Invalidate() {
	r.cache.Store(&generation{})
}

func (r *Resolver) Calendar() *Calendar {
	return r.calendar.Load()
}

// Today returns the current date in the exchange time zone.
func (r *Resolver) Today() string {
	return r.now().In(r.config.Location).Format(DateLayout)
}

func cached[T any](r *Resolver, key string, compute func() (T, *errors.StandardError)) (T, *errors.StandardError) {
	gen := r.cache.Load()
	now := r.now()
	if v, ok := gen.entries.Load(key); ok {
		e := v.(cacheEntry)
		if now.Before(e.expires) {
			return e.value.(T), nil
		}
	}
	val, err := compute()
	if err != nil {
		return val, err
	}
	gen.entries.Store(key, cacheEntry{value: val, expires: now.Add(r.config.CacheTTL)})
	return val, nil
}

// LatestTradingDate returns the most recent date with data on or before
// `before` (today when empty). A date newer than the snapshot is probed first.
func (r *Resolver) LatestTradingDate(ctx context.Context, before string) (string, *errors.StandardError) {
	anchor := before
	if anchor == "" {
		anchor = r.Today()
	}
	return cached(r, "latest|"+anchor, func() (string, *errors.StandardError) {
		cal := r.calendar.Load()
		if cal.Contains(anchor) {
			return anchor, nil
		}
		if anchor > cal.Last() && r.probe != nil {
			ok, err := r.probe.HasData(ctx, anchor)
			if err != nil {
				r.logger.Warn("same-day data probe failed", map[string]interface{}{"date": anchor, "error": err.Error()})
			} else if ok {
				return anchor, nil
			}
		}
		return r.before(cal, anchor)
	})
}

// PreviousTradingDate returns the trading date strictly before `of`.
func (r *Resolver) PreviousTradingDate(ctx context.Context, of string) (string, *errors.StandardError) {
	if _, err := parseDate(of); err != nil {
		return "", errors.NewInvalidDateError(of, err.Error())
	}
	return cached(r, "prev|"+of, func() (string, *errors.StandardError) {
		return r.before(r.calendar.Load(), of)
	})
}

func (r *Resolver) before(cal *Calendar, anchor string) (string, *errors.StandardError) {
	prev, ok := cal.Before(anchor)
	if !ok || daysBetween(prev, anchor) > r.config.LookbackDays {
		return "", errors.NewCalendarExhaustedError(anchor, r.config.LookbackDays)
	}
	return prev, nil
}

// TradingDaysBefore returns the n most recent trading days ending at the
// latest date on or before anchor. The start clamps to the earliest date.
func (r *Resolver) TradingDaysBefore(ctx context.Context, n int, anchor string) (*models.ResolvedPeriod, *errors.StandardError) {
	if n < 1 {
		n = 1
	}
	key := "days|" + strconv.Itoa(n) + "|" + anchor
	if anchor == "" {
		key += r.Today()
	}
	return cached(r, key, func() (*models.ResolvedPeriod, *errors.StandardError) {
		end, err := r.LatestTradingDate(ctx, anchor)
		if err != nil {
			return nil, err
		}
		cal := r.calendar.Load()
		days := cal.Window(end, n)
		if len(days) == 0 || days[len(days)-1] != end {
			// end was probed and is not in the snapshot yet.
			days = append(cal.Window(end, n-1), end)
		}
		p := models.RangePeriod(days[0], days[len(days)-1])
		p.Latest = anchor == ""
		return p, nil
	})
}

// RangeForPeriod converts "last count units" into a trading-day range.
func (r *Resolver) RangeForPeriod(ctx context.Context, unit PeriodUnit, count int, anchor string) (*models.ResolvedPeriod, *errors.StandardError) {
	if count < 1 {
		count = 1
	}
	n := TradingDaysFor(unit, count)
	if n == 0 {
		return nil, errors.NewInvalidDateError(string(unit), "unknown period unit")
	}
	return r.TradingDaysBefore(ctx, n, anchor)
}

// ResolveDate snaps an explicit date to the latest trading date on or before it.
func (r *Resolver) ResolveDate(ctx context.Context, date string) (*models.ResolvedPeriod, *errors.StandardError) {
	if _, err := parseDate(date); err != nil {
		return nil, errors.NewInvalidDateError(date, err.Error())
	}
	if today := r.Today(); date > today {
		return nil, errors.NewFutureDateError(date, today)
	}
	d, err := r.LatestTradingDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return models.DatePeriod(d), nil
}

// ResolveLatest is the "latest" date period.
func (r *Resolver) ResolveLatest(ctx context.Context) (*models.ResolvedPeriod, *errors.StandardError) {
	d, err := r.LatestTradingDate(ctx, "")
	if err != nil {
		return nil, err
	}
	p := models.DatePeriod(d)
	p.Latest = true
	return p, nil
}

// ResolveRange snaps both ends inward to trading dates. An inverted raw range
// is returned unsnapped so validation can report it.
func (r *Resolver) ResolveRange(ctx context.Context, start, end string) (*models.ResolvedPeriod, *errors.StandardError) {
	if _, err := parseDate(start); err != nil {
		return nil, errors.NewInvalidDateError(start, err.Error())
	}
	if _, err := parseDate(end); err != nil {
		return nil, errors.NewInvalidDateError(end, err.Error())
	}
	if start > end {
		return models.RangePeriod(start, end), nil
	}
	today := r.Today()
	if start > today {
		return nil, errors.NewFutureDateError(start, today)
	}
	if end > today {
		end = today
	}
	return cached(r, "range|"+start+"|"+end, func() (*models.ResolvedPeriod, *errors.StandardError) {
		e, err := r.LatestTradingDate(ctx, end)
		if err != nil {
			return nil, err
		}
		s, ok := r.calendar.Load().OnOrAfter(start)
		if !ok || s > e {
			if e < start {
				return nil, errors.NewInvalidDateError(start+"-"+end, "no trading day in range")
			}
			// Only the probed date lies inside the range.
			s = e
		}
		return models.RangePeriod(s, e), nil
	})
}

func parseDate(d string) (time.Time, error) {
	if len(d) != 8 {
		return time.Time{}, fmt.Errorf("expected YYYYMMDD")
	}
	t, err := time.Parse(DateLayout, d)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a calendar date")
	}
	return t, nil
}

func daysBetween(a, b string) int {
	ta, err1 := time.Parse(DateLayout, a)
	tb, err2 := time.Parse(DateLayout, b)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
