// internal/workers/resolution/resolve-period/models.go
package resolveperiod

import (
	"query-router/internal/common/errors"
	"query-router/internal/models"
)

// DateLayout is the canonical trading date format.
const DateLayout = "20060102"

type PeriodUnit string

const (
	UnitDay      PeriodUnit = "day"
	UnitWeek     PeriodUnit = "week"
	UnitMonth    PeriodUnit = "month"
	UnitQuarter  PeriodUnit = "quarter"
	UnitHalfYear PeriodUnit = "half_year"
	UnitYear     PeriodUnit = "year"
)

// Trading days per unit. These are approximations of the exchange calendar,
// not exact counts: a "month" is always 20 sessions regardless of holidays.
var tradingDaysPerUnit = map[PeriodUnit]int{
	UnitDay:      1,
	UnitWeek:     5,
	UnitMonth:    20,
	UnitQuarter:  60,
	UnitHalfYear: 120,
	UnitYear:     240,
}

// TradingDaysFor returns the approximate session count of count units.
func TradingDaysFor(unit PeriodUnit, count int) int {
	per, ok := tradingDaysPerUnit[unit]
	if !ok {
		return 0
	}
	return per * count
}

type Input struct {
	// Unit empty means "latest trading date".
	Unit   PeriodUnit `json:"unit,omitempty"`
	Count  int        `json:"count,omitempty"`
	Anchor string     `json:"anchor,omitempty"`
}

type Output struct {
	Period *models.ResolvedPeriod `json:"period,omitempty"`
	Error  *errors.StandardError  `json:"error,omitempty"`
}
