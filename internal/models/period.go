// internal/models/period.go
package models

type PeriodKind string

const (
	PeriodDate   PeriodKind = "date"
	PeriodRange  PeriodKind = "range"
	PeriodReport PeriodKind = "report"
)

// ReportKind is the fiscal reporting period type.
type ReportKind string

const (
	ReportAnnual  ReportKind = "annual"
	ReportQ1      ReportKind = "q1"
	ReportInterim ReportKind = "interim"
	ReportQ3      ReportKind = "q3"
	// ReportAny accepts whichever period was disclosed last.
	ReportAny ReportKind = "any"
)

// ResolvedPeriod is anchored to the trading calendar. Dates are YYYYMMDD.
type ResolvedPeriod struct {
	Kind       PeriodKind `json:"kind"`
	Date       string     `json:"date,omitempty"`
	Start      string     `json:"start,omitempty"`
	End        string     `json:"end,omitempty"`
	ReportKind ReportKind `json:"reportKind,omitempty"`
	ReportEnd  string     `json:"reportEnd,omitempty"`
	// Latest marks a period that was resolved from "latest" rather than stated.
	Latest bool `json:"latest,omitempty"`
}

func DatePeriod(d string) *ResolvedPeriod {
	return &ResolvedPeriod{Kind: PeriodDate, Date: d}
}

func RangePeriod(start, end string) *ResolvedPeriod {
	return &ResolvedPeriod{Kind: PeriodRange, Start: start, End: end}
}

func ReportPeriod(kind ReportKind, end string) *ResolvedPeriod {
	return &ResolvedPeriod{Kind: PeriodReport, ReportKind: kind, ReportEnd: end}
}

// Bounds returns the inclusive date span a period covers.
func (p *ResolvedPeriod) Bounds() (string, string) {
	switch p.Kind {
	case PeriodDate:
		return p.Date, p.Date
	case PeriodRange:
		return p.Start, p.End
	default:
		return p.ReportEnd, p.ReportEnd
	}
}
