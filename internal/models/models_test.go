package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"query-router/internal/common/errors"
)

func TestParameterBag_AddExclusion(t *testing.T) {
	b := &ParameterBag{}
	b.AddExclusion(ExcludeST)
	b.AddExclusion(ExcludeBSE)
	b.AddExclusion(ExcludeST)
	b.AddExclusion(ExcludeChiNext)

	assert.Equal(t, []ExclusionRule{ExcludeBSE, ExcludeChiNext, ExcludeST}, b.Exclusions)
}

func TestParameterBag_FailKeepsFirst(t *testing.T) {
	b := &ParameterBag{}
	assert.False(t, b.Failed())

	b.Fail(nil)
	assert.False(t, b.Failed())

	b.Fail(errors.NewEntityNotFoundError("x"))
	b.Fail(errors.NewRangeInvertedError("20240310", "20240301"))
	assert.True(t, b.Failed())
	assert.Equal(t, errors.ErrCodeEntityNotFound, b.Err.Code)
}

func TestParameterBag_Has(t *testing.T) {
	sector := &ResolvedEntity{Kind: EntitySector, Code: "白酒", Name: "白酒"}
	bag := &ParameterBag{
		Entities: []ResolvedEntity{
			{Kind: EntitySector, Code: "银行", Name: "银行"},
			{Kind: EntitySecurity, Code: "600519.SH", Name: "贵州茅台"},
		},
		Sector: sector,
		Period: RangePeriod("20240301", "20240314"),
	}

	tests := []struct {
		kind ParamKind
		want bool
	}{
		{ParamEntity, true},
		{ParamEntities, true},
		{ParamSector, true},
		{ParamDate, false},
		{ParamDateRange, true},
		{ParamReportPeriod, false},
		{ParamLimit, false},
		{ParamExclusions, false},
		{ParamKind("unknown"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, bag.Has(tt.kind))
		})
	}

	assert.Equal(t, []string{"600519.SH"}, bag.Codes())

	single := &ParameterBag{Period: DatePeriod("20240314"), HasLimit: true, Limit: 5}
	assert.True(t, single.Has(ParamDate))
	assert.True(t, single.Has(ParamDateRange), "a single date is a one-day range")
	assert.True(t, single.Has(ParamLimit))
}

func TestResolvedPeriod_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		period    *ResolvedPeriod
		wantStart string
		wantEnd   string
	}{
		{name: "date", period: DatePeriod("20240314"), wantStart: "20240314", wantEnd: "20240314"},
		{name: "range", period: RangePeriod("20240301", "20240314"), wantStart: "20240301", wantEnd: "20240314"},
		{name: "report", period: ReportPeriod(ReportAnnual, "20231231"), wantStart: "20231231", wantEnd: "20231231"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.period.Bounds()
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestTemplate_Accepts(t *testing.T) {
	tmpl := &Template{
		Required:          []ParamKind{ParamEntity},
		Optional:          []ParamKind{ParamDate},
		Defaults:          map[ParamKind]DefaultPolicy{ParamDate: DefaultLatestDate},
		AllowedExclusions: []ExclusionRule{ExcludeST},
	}
	assert.True(t, tmpl.Requires(ParamEntity))
	assert.False(t, tmpl.Requires(ParamDate))
	assert.True(t, tmpl.Accepts(ParamDate))
	assert.False(t, tmpl.Accepts(ParamLimit))

	policy, ok := tmpl.DefaultFor(ParamDate)
	assert.True(t, ok)
	assert.Equal(t, DefaultLatestDate, policy)

	assert.True(t, tmpl.AllowsExclusion(ExcludeST))
	assert.False(t, tmpl.AllowsExclusion(ExcludeSTAR))
	assert.Equal(t, "SH", Security{Code: "600519.SH"}.Suffix())
}
