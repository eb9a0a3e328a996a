// internal/workers/resolution/resolve-period/reports.go
package resolveperiod

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"query-router/internal/common/errors"
	"query-router/internal/models"
)

var reportSuffix = map[models.ReportKind]string{
	models.ReportAnnual:  "1231",
	models.ReportQ1:      "0331",
	models.ReportInterim: "0630",
	models.ReportQ3:      "0930",
}

// Statutory disclosure deadlines (MMDD) and the period end they publish.
var disclosureDeadlines = []struct {
	kind     models.ReportKind
	deadline string
}{
	{models.ReportAnnual, "0430"},
	{models.ReportQ1, "0430"},
	{models.ReportInterim, "0831"},
	{models.ReportQ3, "1031"},
}

// ReportKindOf infers the period type from a fiscal period end date.
func ReportKindOf(end string) models.ReportKind {
	for kind, suffix := range reportSuffix {
		if strings.HasSuffix(end, suffix) {
			return kind
		}
	}
	return models.ReportAny
}

// LatestReportingPeriod returns the latest disclosed period of kind for the
// security, or the latest period due by statute when no entity or data exists.
func (r *Resolver) LatestReportingPeriod(ctx context.Context, code string, kind models.ReportKind) (*models.ResolvedPeriod, *errors.StandardError) {
	if kind == "" {
		kind = models.ReportAny
	}
	today := r.Today()
	return cached(r, "report|"+code+"|"+string(kind)+"|"+today, func() (*models.ResolvedPeriod, *errors.StandardError) {
		if code != "" && r.reports != nil {
			end, ok, err := r.reports.LatestReportEnd(ctx, code, kind)
			switch {
			case err != nil:
				r.logger.Warn("report period lookup failed, using disclosure calendar", map[string]interface{}{
					"code": code, "kind": string(kind), "error": err.Error(),
				})
			case ok:
				p := models.ReportPeriod(ReportKindOf(end), end)
				p.Latest = true
				return p, nil
			}
		}
		end := dueReportEnd(today, kind)
		p := models.ReportPeriod(ReportKindOf(end), end)
		p.Latest = true
		return p, nil
	})
}

// ReportFor builds the period for an explicit fiscal year.
func (r *Resolver) ReportFor(kind models.ReportKind, year int) (*models.ResolvedPeriod, *errors.StandardError) {
	if kind == models.ReportAny || kind == "" {
		kind = models.ReportAnnual
	}
	if year < 1990 || year > 9999 {
		return nil, errors.NewInvalidDateError(fmt.Sprintf("%d", year), "fiscal year out of range")
	}
	end := fmt.Sprintf("%04d%s", year, reportSuffix[kind])
	if today := r.Today(); end > today {
		return nil, errors.NewFutureDateError(end, today)
	}
	return models.ReportPeriod(kind, end), nil
}

// dueReportEnd is the most recent period end whose disclosure deadline has passed.
func dueReportEnd(today string, kind models.ReportKind) string {
	year, _ := strconv.Atoi(today[:4])
	mmdd := today[4:]

	best := ""
	for _, d := range disclosureDeadlines {
		if kind != models.ReportAny && d.kind != kind {
			continue
		}
		y := year
		if mmdd <= d.deadline {
			y--
		}
		if d.kind == models.ReportAnnual {
			y--
		}
		end := fmt.Sprintf("%04d%s", y, reportSuffix[d.kind])
		if end > best {
			best = end
		}
	}
	return best
}
