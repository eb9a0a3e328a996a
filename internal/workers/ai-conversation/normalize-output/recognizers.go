// internal/workers/ai-conversation/normalize-output/recognizers.go
package normalizeoutput

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"query-router/internal/models"
)

const (
	RecognizerMarker    = "marker"
	RecognizerToolBlock = "tool_block"
	RecognizerHeuristic = "heuristic"
	RecognizerVerbatim  = "verbatim"
)

// recognizer inspects raw generator text and claims it or passes.
// Recognizers are pure; order decides precedence.
type recognizer struct {
	name string
	fn   func(raw string, in *Input) (*models.FinalAnswer, bool)

	// steps marks a recognizer that only runs when tool steps were requested.
	steps bool
}

var (
	finalMarker = regexp.MustCompile(`(?:Final Answer|最终答案|最终回答)\s*[:：]`)

	actionLine      = regexp.MustCompile(`(?m)^\s*Action\s*:\s*(.+?)\s*$`)
	actionInputLine = regexp.MustCompile(`(?m)^\s*Action Input\s*:\s*(.+?)\s*$`)
	observationLine = regexp.MustCompile(`(?m)^\s*Observation\s*:\s*(.+?)\s*$`)

	currencyLiteral = regexp.MustCompile(`(?:[¥￥$]\s*\d[\d,]*(?:\.\d+)?|\d[\d,]*(?:\.\d+)?\s*(?:亿元|万元|元|美元|港元|亿|万))`)
	percentLiteral  = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?\s*[%％]`)
	dateLiteral     = regexp.MustCompile(`\d{4}(?:[-/.]\d{1,2}[-/.]\d{1,2}|年\d{1,2}月(?:\d{1,2}日)?|\d{4})`)
)

// recognizeMarker returns the text after the last final-answer marker.
func recognizeMarker(raw string, _ *Input) (*models.FinalAnswer, bool) {
	locs := finalMarker.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil, false
	}
	text := strings.TrimSpace(raw[locs[len(locs)-1][1]:])
	if text == "" {
		return nil, false
	}
	return &models.FinalAnswer{Text: text, Recognizer: RecognizerMarker}, true
}

// recognizeToolBlock reads Action / Action Input / Observation blocks. The
// last observation is the answer; without one the last action input is.
func recognizeToolBlock(raw string, _ *Input) (*models.FinalAnswer, bool) {
	actions := actionLine.FindAllStringSubmatch(raw, -1)
	inputs := actionInputLine.FindAllStringSubmatch(raw, -1)
	if len(actions) == 0 || len(inputs) == 0 {
		return nil, false
	}

	n := len(actions)
	if len(inputs) < n {
		n = len(inputs)
	}
	steps := make([]models.ToolStep, n)
	for i := 0; i < n; i++ {
		steps[i] = models.ToolStep{Action: actions[i][1], Input: inputs[i][1]}
	}

	text := steps[n-1].Input
	if obs := observationLine.FindAllStringSubmatch(raw, -1); len(obs) > 0 {
		text = obs[len(obs)-1][1]
	}
	return &models.FinalAnswer{Text: text, Recognizer: RecognizerToolBlock, Steps: steps}, true
}

// recognizeHeuristic accepts text carrying at least two kinds of result literal.
func recognizeHeuristic(raw string, _ *Input) (*models.FinalAnswer, bool) {
	kinds := 0
	for _, re := range []*regexp.Regexp{currencyLiteral, percentLiteral, dateLiteral} {
		if re.MatchString(raw) {
			kinds++
		}
	}
	if kinds < 2 {
		return nil, false
	}
	return &models.FinalAnswer{Text: strings.TrimSpace(raw), Recognizer: RecognizerHeuristic}, true
}

func verbatim(minLength int) func(string, *Input) (*models.FinalAnswer, bool) {
	return func(raw string, _ *Input) (*models.FinalAnswer, bool) {
		text := strings.TrimSpace(raw)
		if utf8.RuneCountInString(text) < minLength {
			return nil, false
		}
		return &models.FinalAnswer{Text: text, Recognizer: RecognizerVerbatim, Verbatim: true}, true
	}
}
