// internal/workers/resolution/resolve-period/calendar.go
package resolveperiod

import (
	"sort"
	"time"
)

// Calendar is an immutable, ascending list of trading dates that have market data.
type Calendar struct {
	dates    []string
	LoadedAt time.Time
}

func NewCalendar(dates []string) *Calendar {
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, d := range sorted {
		if i > 0 && d == sorted[i-1] {
			continue
		}
		out = append(out, d)
	}
	return &Calendar{dates: out, LoadedAt: time.Now()}
}

func (c *Calendar) Len() int { return len(c.dates) }

func (c *Calendar) Earliest() string {
	if len(c.dates) == 0 {
		return ""
	}
	return c.dates[0]
}

func (c *Calendar) Last() string {
	if len(c.dates) == 0 {
		return ""
	}
	return c.dates[len(c.dates)-1]
}

func (c *Calendar) Contains(d string) bool {
	i := sort.SearchStrings(c.dates, d)
	return i < len(c.dates) && c.dates[i] == d
}

// OnOrBefore returns the latest trading date <= d.
func (c *Calendar) OnOrBefore(d string) (string, bool) {
	i := sort.SearchStrings(c.dates, d)
	if i < len(c.dates) && c.dates[i] == d {
		return d, true
	}
	if i == 0 {
		return "", false
	}
	return c.dates[i-1], true
}

// Before returns the latest trading date strictly before d.
func (c *Calendar) Before(d string) (string, bool) {
	i := sort.SearchStrings(c.dates, d)
	if i == 0 {
		return "", false
	}
	return c.dates[i-1], true
}

// OnOrAfter returns the earliest trading date >= d.
func (c *Calendar) OnOrAfter(d string) (string, bool) {
	i := sort.SearchStrings(c.dates, d)
	if i == len(c.dates) {
		return "", false
	}
	return c.dates[i], true
}

// Window returns the last n trading dates on or before end, oldest first.
// It is shorter than n when the snapshot runs out.
func (c *Calendar) Window(end string, n int) []string {
	if n < 1 {
		return nil
	}
	i := sort.SearchStrings(c.dates, end)
	if i < len(c.dates) && c.dates[i] == end {
		i++
	}
	j := i - n
	if j < 0 {
		j = 0
	}
	return append([]string(nil), c.dates[j:i]...)
}

// Dates returns a copy of the snapshot.
func (c *Calendar) Dates() []string {
	return append([]string(nil), c.dates...)
}
