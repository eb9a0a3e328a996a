// internal/workers/ai-conversation/llm-fallback/hints.go
package llmfallback

import (
	"fmt"
	"strings"

	"query-router/internal/common/validation"
	"query-router/internal/models"
)

var hintsSchema = validation.MustCompile("fallback-hints", `{
	"type": "object",
	"properties": {
		"entities": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["code", "name"],
				"properties": {
					"code": {"type": "string", "pattern": "^[0-9]{6}\\.(SH|SZ|BJ)$"},
					"name": {"type": "string"}
				}
			}
		},
		"sector": {"type": "string"},
		"period": {
			"type": "object",
			"required": ["kind"],
			"properties": {
				"kind": {"enum": ["date", "range", "report"]},
				"date": {"type": "string", "pattern": "^[0-9]{8}$"},
				"start": {"type": "string", "pattern": "^[0-9]{8}$"},
				"end": {"type": "string", "pattern": "^[0-9]{8}$"},
				"reportEnd": {"type": "string", "pattern": "^[0-9]{8}$"}
			}
		},
		"limit": {"type": "integer", "minimum": 0},
		"order": {"enum": ["asc", "desc", ""]},
		"exclusions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// HintsFromBag keeps only canonical values. A defaulted limit is not a hint.
func HintsFromBag(bag *models.ParameterBag) Hints {
	var h Hints
	if bag == nil {
		return h
	}
	for _, e := range bag.Securities() {
		h.Entities = append(h.Entities, HintEntity{Code: e.Code, Name: e.Name})
	}
	if bag.Sector != nil {
		h.Sector = bag.Sector.Code
	}
	h.Period = bag.Period
	if bag.HasLimit && !bag.LimitDefaulted {
		h.Limit = bag.Limit
	}
	if bag.Order == models.OrderAsc {
		h.Order = string(bag.Order)
	}
	for _, r := range bag.Exclusions {
		h.Exclusions = append(h.Exclusions, string(r))
	}
	return h
}

func validateHints(h Hints) error {
	res, err := hintsSchema.Validate(h)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%s", strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}

// buildPrompt renders the resolved hints in front of the question.
func buildPrompt(question string, h Hints) string {
	var parts []string
	parts = append(parts, "你是A股数据助手。请根据已解析的参数回答用户问题，最后一行以“最终答案：”开头给出结论。")
	parts = append(parts, fmt.Sprintf("\n用户问题: %s", question))

	var resolved []string
	for _, e := range h.Entities {
		resolved = append(resolved, fmt.Sprintf("- 证券: %s (%s)", e.Name, e.Code))
	}
	if h.Sector != "" {
		resolved = append(resolved, fmt.Sprintf("- 板块: %s", h.Sector))
	}
	if h.Period != nil {
		start, end := h.Period.Bounds()
		if start == end {
			resolved = append(resolved, fmt.Sprintf("- 日期: %s", end))
		} else {
			resolved = append(resolved, fmt.Sprintf("- 区间: %s 至 %s", start, end))
		}
	}
	if h.Limit > 0 {
		resolved = append(resolved, fmt.Sprintf("- 数量: %d", h.Limit))
	}
	if len(h.Exclusions) > 0 {
		resolved = append(resolved, fmt.Sprintf("- 排除: %s", strings.Join(h.Exclusions, ", ")))
	}
	if len(resolved) > 0 {
		parts = append(parts, "\n已解析参数:")
		parts = append(parts, resolved...)
	}

	parts = append(parts, "\n回答:")
	return strings.Join(parts, "\n")
}
