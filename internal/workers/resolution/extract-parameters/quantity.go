// internal/workers/resolution/extract-parameters/quantity.go
package extractparameters

import (
	"math"
	"regexp"
	"strconv"

	"query-router/internal/models"
)

const cnCount = `[零〇一二两三四五六七八九十百千]+`

var (
	topDigits   = regexp.MustCompile(`(?i)top\s*(\d+)`)
	topCN       = regexp.MustCompile(`(?i)top\s*(` + cnCount + `)`)
	rankCN      = regexp.MustCompile(`(排名前|前|后|倒数第?)(` + cnCount + `)`)
	countCN     = regexp.MustCompile(`(` + cnCount + `)(只|名|家|支|条|个股票|个公司|个标的)`)
	limitPhrase = regexp.MustCompile(`(?:排名前|前|倒数第?|后)\s*(\d+)|(\d+)\s*(?:只|名|家|支|条|个股票|个公司|个标的)`)
	ascWords    = regexp.MustCompile(`跌幅|跌得|领跌|跌最多|最低|最少|最小|倒数|升序|从低到高|由低到高|后\s*\d+`)
)

// normalizeQuantity turns numeral words and TOP<N> into plain integers.
// It runs after temporal normalization so dates are already tokens.
func normalizeQuantity(text string) string {
	s := topDigits.ReplaceAllString(text, "前$1")
	s = topCN.ReplaceAllStringFunc(s, func(m string) string {
		sub := topCN.FindStringSubmatch(m)
		if n, ok := cnNumber(sub[1]); ok {
			return "前" + strconv.Itoa(n)
		}
		return m
	})
	s = rankCN.ReplaceAllStringFunc(s, func(m string) string {
		sub := rankCN.FindStringSubmatch(m)
		if n, ok := cnNumber(sub[2]); ok {
			return sub[1] + strconv.Itoa(n)
		}
		return m
	})
	s = countCN.ReplaceAllStringFunc(s, func(m string) string {
		sub := countCN.FindStringSubmatch(m)
		if n, ok := cnNumber(sub[1]); ok {
			return strconv.Itoa(n) + sub[2]
		}
		return m
	})
	return s
}

// extractLimit reads the first explicit limit from masked text.
func extractLimit(masked string) (int, bool) {
	sub := limitPhrase.FindStringSubmatch(masked)
	if sub == nil {
		return 0, false
	}
	v := sub[1]
	if v == "" {
		v = sub[2]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return math.MaxInt32, true
	}
	return n, true
}

func extractOrder(masked string) models.OrderDirection {
	if ascWords.MatchString(masked) {
		return models.OrderAsc
	}
	return models.OrderDesc
}
