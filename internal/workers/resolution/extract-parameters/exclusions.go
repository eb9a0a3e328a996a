// internal/workers/resolution/extract-parameters/exclusions.go
package extractparameters

import (
	"regexp"

	"query-router/internal/models"
)

var (
	exclusionClause = regexp.MustCompile(`(?:剔除|排除|不含|不包含|不包括|去掉|去除|除去|除了|过滤掉?|不要|排掉)([^，,。；;！!？?]*)`)
	nonST           = regexp.MustCompile(`(?i)非\s*\*?st`)
)

var exclusionKeywords = []struct {
	pattern *regexp.Regexp
	rule    models.ExclusionRule
}{
	{regexp.MustCompile(`(?i)\*?st`), models.ExcludeST},
	{regexp.MustCompile(`科创板?`), models.ExcludeSTAR},
	{regexp.MustCompile(`创业板`), models.ExcludeChiNext},
	{regexp.MustCompile(`北交所|北证|北京证券交易所`), models.ExcludeBSE},
}

// extractExclusions returns the exclusion rules named after an exclusion verb.
func extractExclusions(masked string) []models.ExclusionRule {
	seen := map[models.ExclusionRule]bool{}
	var out []models.ExclusionRule
	add := func(r models.ExclusionRule) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if nonST.MatchString(masked) {
		add(models.ExcludeST)
	}
	for _, m := range exclusionClause.FindAllStringSubmatch(masked, -1) {
		for _, kw := range exclusionKeywords {
			if kw.pattern.MatchString(m[1]) {
				add(kw.rule)
			}
		}
	}
	return out
}
