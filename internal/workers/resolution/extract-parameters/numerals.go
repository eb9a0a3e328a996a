// internal/workers/resolution/extract-parameters/numerals.go
package extractparameters

import (
	"strconv"
	"strings"
)

var cnDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var cnUnits = map[rune]int{'十': 10, '百': 100, '千': 1000}

// cnNumber reads a Chinese numeral such as 二十, 一百零五, 两千 or the
// digit-by-digit form 二〇二四. It returns false for anything else.
func cnNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}

	runes := []rune(s)
	hasUnit := false
	for _, r := range runes {
		if _, ok := cnUnits[r]; ok || r == '万' {
			hasUnit = true
			continue
		}
		if _, ok := cnDigits[r]; !ok {
			return 0, false
		}
	}

	if !hasUnit {
		n := 0
		for _, r := range runes {
			n = n*10 + cnDigits[r]
		}
		return n, true
	}

	total, section, num := 0, 0, 0
	for _, r := range runes {
		if d, ok := cnDigits[r]; ok {
			num = d
			continue
		}
		if r == '万' {
			total += (section + num) * 10000
			section, num = 0, 0
			continue
		}
		unit := cnUnits[r]
		if num == 0 {
			num = 1
		}
		section += num * unit
		num = 0
	}
	return total + section + num, true
}

// toHalfWidth maps full-width digits, letters and common punctuation to ASCII.
func toHalfWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '０' && r <= '９', r >= 'Ａ' && r <= 'Ｚ', r >= 'ａ' && r <= 'ｚ':
			b.WriteRune(r - '０' + '0')
		case r == '．':
			b.WriteRune('.')
		case r == '－':
			b.WriteRune('-')
		case r == '／':
			b.WriteRune('/')
		case r == '　':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
