// internal/workers/data-access/query-postgresql/queries/params.go
package queries

import (
	"strconv"
	"strings"

	"query-router/internal/models"
)

// Params is the executor view of a validated parameter bag. Dates are YYYYMMDD.
type Params struct {
	Codes      []string
	Sector     string
	Start      string
	End        string
	ReportEnd  string
	Limit      int
	Ascending  bool
	Exclusions []models.ExclusionRule
}

// FromBag flattens a validated bag.
func FromBag(bag *models.ParameterBag) Params {
	p := Params{
		Codes:      bag.Codes(),
		Limit:      bag.Limit,
		Ascending:  bag.Order == models.OrderAsc,
		Exclusions: bag.Exclusions,
	}
	if bag.Sector != nil {
		p.Sector = bag.Sector.Code
	}
	if bag.Period != nil {
		if bag.Period.Kind == models.PeriodReport {
			p.ReportEnd = bag.Period.ReportEnd
		} else {
			p.Start, p.End = bag.Period.Bounds()
		}
	}
	return p
}

func (p Params) code() (string, error) {
	if len(p.Codes) == 0 {
		return "", ErrMissingParam
	}
	return p.Codes[0], nil
}

func (p Params) date() (string, error) {
	if p.End == "" {
		return "", ErrMissingParam
	}
	return p.End, nil
}

func (p Params) direction() string {
	if p.Ascending {
		return "ASC"
	}
	return "DESC"
}

// exclusionFilter returns fixed SQL fragments against stock_basic aliased as b.
func exclusionFilter(rules []models.ExclusionRule) (string, error) {
	var parts []string
	for _, r := range rules {
		switch r {
		case models.ExcludeST:
			parts = append(parts, "b.name NOT LIKE '%ST%'")
		case models.ExcludeSTAR:
			parts = append(parts, "b.ts_code NOT LIKE '688%'")
		case models.ExcludeChiNext:
			parts = append(parts, "b.ts_code NOT LIKE '300%' AND b.ts_code NOT LIKE '301%'")
		case models.ExcludeBSE:
			parts = append(parts, "b.ts_code NOT LIKE '%.BJ'")
		default:
			return "", ErrUnsupportedExclusion
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(parts, " AND "), nil
}

func placeholders(from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(out, ",")
}
