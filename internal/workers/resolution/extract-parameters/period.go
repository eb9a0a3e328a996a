// internal/workers/resolution/extract-parameters/period.go
package extractparameters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"query-router/internal/common/errors"
	"query-router/internal/models"
	resolveperiod "query-router/internal/workers/resolution/resolve-period"
)

// pickToken chooses the token that becomes the bag's period. Report-shaped
// tokens win on templates that take a reporting period.
func pickToken(tokens []temporalToken, tmpl *models.Template) (temporalToken, bool) {
	if len(tokens) == 0 {
		return temporalToken{}, false
	}
	if tmpl != nil && tmpl.Accepts(models.ParamReportPeriod) {
		for _, t := range tokens {
			if t.kind == "report" || t.kind == "year" {
				return t, true
			}
		}
	}
	for _, t := range tokens {
		if t.kind != "report" {
			return t, true
		}
	}
	return tokens[0], true
}

// resolveTemporal sets bag.Period from the chosen token. A "latest report"
// token needs the entity, so it is returned for the defaults pass instead.
func (h *Handler) resolveTemporal(ctx context.Context, bag *models.ParameterBag, tokens []temporalToken, tmpl *models.Template) *models.ReportKind {
	t, ok := pickToken(tokens, tmpl)
	if !ok {
		return nil
	}
	if t.kind == "report" && t.arg(1) == "0" {
		kind := models.ReportKind(t.arg(0))
		return &kind
	}
	p, err := h.resolveToken(ctx, t, tmpl)
	h.setPeriod(bag, p, err)
	return nil
}

func (h *Handler) resolveToken(ctx context.Context, t temporalToken, tmpl *models.Template) (*models.ResolvedPeriod, *errors.StandardError) {
	r := h.periods
	today := r.Today()

	switch t.kind {
	case "latest":
		return r.ResolveLatest(ctx)

	case "prev":
		latest, err := r.LatestTradingDate(ctx, "")
		if err != nil {
			return nil, err
		}
		d, err := r.PreviousTradingDate(ctx, latest)
		if err != nil {
			return nil, err
		}
		return models.DatePeriod(d), nil

	case "date":
		return r.ResolveDate(ctx, t.arg(0))

	case "md":
		d := today[:4] + t.arg(0)
		if d > today {
			y, _ := strconv.Atoi(today[:4])
			d = strconv.Itoa(y-1) + t.arg(0)
		}
		return r.ResolveDate(ctx, d)

	case "month":
		start, end := spanOf("month", t.arg(0))
		return r.ResolveRange(ctx, start, end)

	case "year":
		if tmpl != nil && tmpl.Accepts(models.ParamReportPeriod) {
			y, err := t.intArg(0)
			if err != nil {
				return nil, errors.NewInvalidDateError(t.String(), err.Error())
			}
			return r.ReportFor(models.ReportAnnual, y)
		}
		start, end := spanOf("year", t.arg(0))
		return r.ResolveRange(ctx, start, end)

	case "range":
		start, end, _ := strings.Cut(t.arg(0), "-")
		return r.ResolveRange(ctx, start, end)

	case "recent":
		n, err := t.intArg(0)
		if err != nil || n < 1 {
			return nil, errors.NewInvalidDateError(t.String(), "trading day count must be positive")
		}
		return r.TradingDaysBefore(ctx, n, "")

	case "period":
		n, err := t.intArg(1)
		if err != nil || n < 1 {
			return nil, errors.NewInvalidDateError(t.String(), "period count must be positive")
		}
		return r.RangeForPeriod(ctx, resolveperiod.PeriodUnit(t.arg(0)), n, "")

	case "cal":
		start, end, ok := calendarSpan(today, t.arg(0))
		if !ok {
			return nil, errors.NewInvalidDateError(t.String(), "unknown calendar phrase")
		}
		return r.ResolveRange(ctx, start, end)

	case "report":
		kind := models.ReportKind(t.arg(0))
		year := t.arg(1)
		if off, isRel := strings.CutPrefix(year, "rel"); isRel {
			y, _ := strconv.Atoi(today[:4])
			n, err := strconv.Atoi(off)
			if err != nil {
				return nil, errors.NewInvalidDateError(t.String(), "bad relative year")
			}
			return r.ReportFor(kind, y+n)
		}
		y, err := t.intArg(1)
		if err != nil {
			return nil, errors.NewInvalidDateError(t.String(), err.Error())
		}
		return r.ReportFor(kind, y)
	}
	return nil, errors.NewInvalidDateError(t.String(), "unrecognized date expression")
}

// calendarSpan maps calendar-aligned phrases to inclusive wall-clock spans.
func calendarSpan(today, name string) (string, string, bool) {
	now, err := time.Parse(resolveperiod.DateLayout, today)
	if err != nil {
		return "", "", false
	}
	f := func(t time.Time) string { return t.Format(resolveperiod.DateLayout) }
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	// Monday-based week.
	monday := now.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))

	switch name {
	case "ytd":
		return today[:4] + "0101", today, true
	case "this_month":
		return f(firstOfMonth), today, true
	case "last_month":
		return f(firstOfMonth.AddDate(0, -1, 0)), f(firstOfMonth.AddDate(0, 0, -1)), true
	case "last_year":
		y := strconv.Itoa(now.Year() - 1)
		return y + "0101", y + "1231", true
	case "this_week":
		return f(monday), today, true
	case "last_week":
		return f(monday.AddDate(0, 0, -7)), f(monday.AddDate(0, 0, -1)), true
	}
	return "", "", false
}
