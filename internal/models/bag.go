// internal/models/bag.go
package models

import (
	"sort"

	"query-router/internal/common/errors"
)

type OrderDirection string

const (
	OrderDesc OrderDirection = "desc"
	OrderAsc  OrderDirection = "asc"
)

type ExclusionRule string

const (
	ExcludeST      ExclusionRule = "EXCLUDE_ST"
	ExcludeSTAR    ExclusionRule = "EXCLUDE_STAR"
	ExcludeChiNext ExclusionRule = "EXCLUDE_CHINEXT"
	ExcludeBSE     ExclusionRule = "EXCLUDE_BSE"
)

// ParameterBag is the typed output of extraction. Once Err is set the bag is terminal.
type ParameterBag struct {
	Normalized string           `json:"normalized"`
	Entities   []ResolvedEntity `json:"entities,omitempty"`
	Sector     *ResolvedEntity  `json:"sector,omitempty"`
	// UnscopedSector holds a sector name seen without a scope marker.
	UnscopedSector string          `json:"unscopedSector,omitempty"`
	Period         *ResolvedPeriod `json:"period,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	HasLimit       bool            `json:"hasLimit"`
	LimitDefaulted bool            `json:"limitDefaulted,omitempty"`
	Order          OrderDirection  `json:"order"`
	Exclusions     []ExclusionRule `json:"exclusions,omitempty"`
	Residue        string          `json:"residue,omitempty"`

	Err *errors.StandardError `json:"error,omitempty"`
}

// Failed reports whether an extraction stage rejected the question.
func (b *ParameterBag) Failed() bool {
	return b.Err != nil
}

// Fail records the first error only; later stages keep running for diagnostics.
func (b *ParameterBag) Fail(err *errors.StandardError) {
	if b.Err == nil && err != nil {
		b.Err = err
	}
}

// Securities returns the security entities in order of appearance.
func (b *ParameterBag) Securities() []ResolvedEntity {
	out := make([]ResolvedEntity, 0, len(b.Entities))
	for _, e := range b.Entities {
		if e.Kind == EntitySecurity {
			out = append(out, e)
		}
	}
	return out
}

// Codes returns the canonical codes of the security entities.
func (b *ParameterBag) Codes() []string {
	secs := b.Securities()
	out := make([]string, len(secs))
	for i, e := range secs {
		out[i] = e.Code
	}
	return out
}

// AddExclusion keeps Exclusions sorted and unique.
func (b *ParameterBag) AddExclusion(r ExclusionRule) {
	for _, e := range b.Exclusions {
		if e == r {
			return
		}
	}
	b.Exclusions = append(b.Exclusions, r)
	sort.Slice(b.Exclusions, func(i, j int) bool { return b.Exclusions[i] < b.Exclusions[j] })
}

// Has reports whether the bag carries a value for kind.
func (b *ParameterBag) Has(kind ParamKind) bool {
	switch kind {
	case ParamEntity:
		return len(b.Securities()) > 0
	case ParamEntities:
		return len(b.Securities()) > 0
	case ParamSector:
		return b.Sector != nil
	case ParamDate:
		return b.Period != nil && b.Period.Kind == PeriodDate
	case ParamDateRange:
		return b.Period != nil && (b.Period.Kind == PeriodRange || b.Period.Kind == PeriodDate)
	case ParamReportPeriod:
		return b.Period != nil && b.Period.Kind == PeriodReport
	case ParamLimit:
		return b.HasLimit
	case ParamExclusions:
		return len(b.Exclusions) > 0
	}
	return false
}
