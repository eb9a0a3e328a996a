// internal/workers/resolution/extract-parameters/temporal.go
package extractparameters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	resolveperiod "query-router/internal/workers/resolution/resolve-period"
)

// Canonical temporal tokens written into the normalized question:
//
//	⟦latest⟧ ⟦prev⟧ ⟦date:YYYYMMDD⟧ ⟦md:MMDD⟧ ⟦month:YYYYMM⟧ ⟦year:YYYY⟧
//	⟦range:YYYYMMDD-YYYYMMDD⟧ ⟦recent:N⟧ ⟦period:UNIT:N⟧ ⟦cal:NAME⟧
//	⟦report:KIND:YEAR⟧ where YEAR is a year, 0 for latest, or relN
const (
	tokenOpen  = '⟦'
	tokenClose = '⟧'
)

var tokenPattern = regexp.MustCompile(`⟦([a-z_]+)(?::([^⟧]*))?⟧`)

type temporalToken struct {
	kind string
	args []string
}

func (t temporalToken) String() string {
	if len(t.args) == 0 {
		return "⟦" + t.kind + "⟧"
	}
	return "⟦" + t.kind + ":" + strings.Join(t.args, ":") + "⟧"
}

func token(kind string, args ...string) string {
	return temporalToken{kind: kind, args: args}.String()
}

const cnNum = `[零〇一二两三四五六七八九十百]+`

var (
	cnBeforeUnit = regexp.MustCompile(`(` + cnNum + `)(个交易日|个季度|季度|个月|个星期|星期|年|月|日|号|天|周)`)

	reportPhrase = regexp.MustCompile(`(?:(\d{4})年?(?:的|度)?|(今年|去年|前年))?(半年度报告|半年报|中期报告|中报|年度报告|年度财报|年报|第?[一1]季(?:度)?(?:报告|财报|报)|第?[二2]季(?:度)?(?:报告|财报|报)|第?[三3]季(?:度)?(?:报告|财报|报))`)
	ymdDate      = regexp.MustCompile(`(\d{4})\s*[年\-/.]\s*(\d{1,2})\s*[月\-/.]\s*(\d{1,2})\s*[日号]?`)
	compactDate  = regexp.MustCompile(`\b((?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01]))\b`)
	yearMonth    = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月(?:份)?`)
	monthDay     = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*[日号]`)
	yearOnly     = regexp.MustCompile(`(\d{4})\s*年(?:度|份)?`)
	recentDays   = regexp.MustCompile(`(?:最近|近|过去|前)\s*(\d+)\s*个?交易日|(?:最近|近|过去)\s*(\d+)\s*(?:天|日)`)
	recentPeriod = regexp.MustCompile(`(?:最近|近|过去)\s*(\d+)?\s*个?(周|星期|月|季度|年)`)
	recentHalf   = regexp.MustCompile(`(?:最近|近|过去)\s*(?:1个?)?半年`)
	calendarWord = regexp.MustCompile(`年初至今|今年以来|年初以来|本年度|今年|本年|本月|这个月|当月|上个月|上月|本周|这周|上周|去年`)
	prevWord     = regexp.MustCompile(`昨天|昨日|上个交易日|上一交易日|上一个交易日|前一交易日|前一个交易日`)
	latestWord   = regexp.MustCompile(`最新|当前|目前|现在|今天|今日|实时|此刻`)
	rangeJoin    = regexp.MustCompile(`(?:从|自)?\s*⟦(date|month|year):(\d+)⟧\s*(?:至|到|~|～|-|—|－|直到)\s*⟦(date|month|year):(\d+)⟧(?:之间|期间)?`)
)

var calendarNames = map[string]string{
	"年初至今": "ytd", "今年以来": "ytd", "年初以来": "ytd", "本年度": "ytd", "今年": "ytd", "本年": "ytd",
	"本月": "this_month", "这个月": "this_month", "当月": "this_month",
	"上个月": "last_month", "上月": "last_month",
	"本周": "this_week", "这周": "this_week",
	"上周": "last_week",
	"去年": "last_year",
}

var periodUnits = map[string]resolveperiod.PeriodUnit{
	"周": resolveperiod.UnitWeek, "星期": resolveperiod.UnitWeek,
	"月": resolveperiod.UnitMonth, "季度": resolveperiod.UnitQuarter, "年": resolveperiod.UnitYear,
}

// normalizeTemporal rewrites every date expression into a canonical token.
// Replacement order matters: reports before years, ranges after dates.
func normalizeTemporal(text string) string {
	s := prevWord.ReplaceAllString(text, token("prev"))
	s = cnBeforeUnit.ReplaceAllStringFunc(s, func(m string) string {
		sub := cnBeforeUnit.FindStringSubmatch(m)
		n, ok := cnNumber(sub[1])
		if !ok {
			return m
		}
		return strconv.Itoa(n) + sub[2]
	})

	s = reportPhrase.ReplaceAllStringFunc(s, func(m string) string {
		sub := reportPhrase.FindStringSubmatch(m)
		year := "0"
		switch {
		case sub[1] != "":
			year = sub[1]
		case sub[2] == "今年":
			year = "rel0"
		case sub[2] == "去年":
			year = "rel-1"
		case sub[2] == "前年":
			year = "rel-2"
		}
		return token("report", string(reportKindOf(sub[3])), year)
	})

	s = compactDate.ReplaceAllString(s, "⟦date:$1⟧")
	s = ymdDate.ReplaceAllStringFunc(s, func(m string) string {
		sub := ymdDate.FindStringSubmatch(m)
		return token("date", ymd(sub[1], sub[2], sub[3]))
	})
	s = yearMonth.ReplaceAllStringFunc(s, func(m string) string {
		sub := yearMonth.FindStringSubmatch(m)
		return token("month", sub[1]+pad2(sub[2]))
	})
	s = monthDay.ReplaceAllStringFunc(s, func(m string) string {
		sub := monthDay.FindStringSubmatch(m)
		return token("md", pad2(sub[1])+pad2(sub[2]))
	})
	s = yearOnly.ReplaceAllString(s, "⟦year:$1⟧")
	s = rangeJoin.ReplaceAllStringFunc(s, func(m string) string {
		sub := rangeJoin.FindStringSubmatch(m)
		start, _ := spanOf(sub[1], sub[2])
		_, end := spanOf(sub[3], sub[4])
		return token("range", start+"-"+end)
	})

	s = recentDays.ReplaceAllStringFunc(s, func(m string) string {
		sub := recentDays.FindStringSubmatch(m)
		n := sub[1]
		if n == "" {
			n = sub[2]
		}
		return token("recent", n)
	})
	s = recentHalf.ReplaceAllString(s, token("period", string(resolveperiod.UnitHalfYear), "1"))
	s = recentPeriod.ReplaceAllStringFunc(s, func(m string) string {
		sub := recentPeriod.FindStringSubmatch(m)
		n := sub[1]
		if n == "" {
			n = "1"
		}
		return token("period", string(periodUnits[sub[2]]), n)
	})
	s = calendarWord.ReplaceAllStringFunc(s, func(m string) string {
		return token("cal", calendarNames[m])
	})
	s = latestWord.ReplaceAllString(s, token("latest"))
	return s
}

func reportKindOf(phrase string) string {
	switch {
	case strings.Contains(phrase, "半年"), strings.Contains(phrase, "中"),
		strings.ContainsAny(phrase, "二2"):
		return "interim"
	case strings.ContainsAny(phrase, "一1"):
		return "q1"
	case strings.ContainsAny(phrase, "三3"):
		return "q3"
	}
	return "annual"
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func ymd(y, m, d string) string {
	return y + pad2(m) + pad2(d)
}

// spanOf returns the first and last calendar day a date, month or year token covers.
func spanOf(kind, v string) (string, string) {
	switch kind {
	case "month":
		t, err := time.Parse("200601", v)
		if err != nil {
			return v + "01", v + "31"
		}
		return t.Format(resolveperiod.DateLayout), t.AddDate(0, 1, -1).Format(resolveperiod.DateLayout)
	case "year":
		return v + "0101", v + "1231"
	}
	return v, v
}

// parseTokens lists temporal tokens in order of appearance.
func parseTokens(normalized string) []temporalToken {
	var out []temporalToken
	for _, m := range tokenPattern.FindAllStringSubmatch(normalized, -1) {
		t := temporalToken{kind: m[1]}
		if m[2] != "" {
			t.args = strings.Split(m[2], ":")
		}
		out = append(out, t)
	}
	return out
}

// maskTokens blanks every token rune-for-rune so spans stay aligned.
func maskTokens(normalized string) string {
	runes := []rune(normalized)
	in := false
	for i, r := range runes {
		switch {
		case r == tokenOpen:
			in = true
			runes[i] = ' '
		case r == tokenClose:
			in = false
			runes[i] = ' '
		case in:
			runes[i] = ' '
		}
	}
	return string(runes)
}

func (t temporalToken) arg(i int) string {
	if i < len(t.args) {
		return t.args[i]
	}
	return ""
}

func (t temporalToken) intArg(i int) (int, error) {
	v := t.arg(i)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("token %s: %q is not a number", t, v)
	}
	return n, nil
}
