// internal/models/template.go
package models

import "query-router/internal/common/errors"

// ParamKind names a parameter slot a template can require or accept.
type ParamKind string

const (
	ParamEntity       ParamKind = "entity"
	ParamEntities     ParamKind = "entities"
	ParamSector       ParamKind = "sector"
	ParamDate         ParamKind = "date"
	ParamDateRange    ParamKind = "date_range"
	ParamReportPeriod ParamKind = "report_period"
	ParamLimit        ParamKind = "limit"
	ParamExclusions   ParamKind = "exclusions"
)

type ExecutorKind string

const (
	ExecutorPostgres      ExecutorKind = "postgres"
	ExecutorElasticsearch ExecutorKind = "elasticsearch"
)

// DefaultPolicy says how a missing parameter is filled.
type DefaultPolicy string

const (
	DefaultLatestDate   DefaultPolicy = "latest_date"
	DefaultLatestReport DefaultPolicy = "latest_report"
	DefaultPolicyLimit  DefaultPolicy = "policy_limit"
	DefaultRecentDays   DefaultPolicy = "recent_trading_days"
)

// Template is a registered fast-path query shape. Immutable after startup.
type Template struct {
	Name              string                      `json:"name"`
	Description       string                      `json:"description,omitempty"`
	Executor          ExecutorKind                `json:"executor"`
	Required          []ParamKind                 `json:"required"`
	Optional          []ParamKind                 `json:"optional,omitempty"`
	Defaults          map[ParamKind]DefaultPolicy `json:"defaults,omitempty"`
	RecentDays        int                         `json:"recentDays,omitempty"`
	MinEntities       int                         `json:"minEntities"`
	MaxEntities       int                         `json:"maxEntities"`
	AllowedExclusions []ExclusionRule             `json:"allowedExclusions,omitempty"`
}

func (t *Template) Requires(kind ParamKind) bool {
	for _, k := range t.Required {
		if k == kind {
			return true
		}
	}
	return false
}

// Accepts reports whether kind is required or optional.
func (t *Template) Accepts(kind ParamKind) bool {
	if t.Requires(kind) {
		return true
	}
	for _, k := range t.Optional {
		if k == kind {
			return true
		}
	}
	return false
}

func (t *Template) DefaultFor(kind ParamKind) (DefaultPolicy, bool) {
	p, ok := t.Defaults[kind]
	return p, ok
}

func (t *Template) AllowsExclusion(r ExclusionRule) bool {
	for _, a := range t.AllowedExclusions {
		if a == r {
			return true
		}
	}
	return false
}

// ValidationResult is pass or fail with exactly one error.
type ValidationResult struct {
	Passed bool                   `json:"passed"`
	Err    *errors.StandardError `json:"error,omitempty"`
}
