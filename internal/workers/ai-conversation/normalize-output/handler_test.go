package normalizeoutput

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		MinVerbatimLength: 20,
		PreviewLength:     16,
	}
}

const toolTranscript = `Thought: I should query the price table
Action: sql_db_query
Action Input: SELECT close FROM daily WHERE ts_code = '600519.SH'
Observation: 1712.34`

// ==========================
// Recognizer Chain
// ==========================

func TestHandler_Normalize(t *testing.T) {
	tests := []struct {
		name           string
		includeSteps   bool
		input          *Input
		wantErr        errors.ErrorCode
		validateOutput func(t *testing.T, answer *models.FinalAnswer)
	}{
		{
			name:  "english marker",
			input: &Input{Raw: "Thought: done\nFinal Answer: Moutai closed at 1712.34"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerMarker, a.Recognizer)
				assert.Equal(t, "Moutai closed at 1712.34", a.Text)
			},
		},
		{
			name:  "chinese marker with full width colon",
			input: &Input{Raw: "分析过程略。\n最终答案：贵州茅台护城河深厚"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, "贵州茅台护城河深厚", a.Text)
			},
		},
		{
			name:  "chinese alternate marker",
			input: &Input{Raw: "最终回答: 估值偏高"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, "估值偏高", a.Text)
			},
		},
		{
			name:  "last marker wins",
			input: &Input{Raw: "Final Answer: draft\nmore thinking\nFinal Answer: settled"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, "settled", a.Text)
			},
		},
		{
			name:  "marker beats heuristic",
			input: &Input{Raw: "2024年3月14日收盘1712.34元，涨0.66%\n最终答案：上涨"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerMarker, a.Recognizer)
				assert.Equal(t, "上涨", a.Text)
			},
		},
		{
			name:         "tool block when steps requested",
			includeSteps: true,
			input:        &Input{Raw: toolTranscript},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerToolBlock, a.Recognizer)
				assert.Equal(t, "1712.34", a.Text)
				require.Len(t, a.Steps, 1)
				assert.Equal(t, "sql_db_query", a.Steps[0].Action)
			},
		},
		{
			name:  "tool block when the input asks for steps",
			input: &Input{Raw: toolTranscript, IncludeSteps: true},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerToolBlock, a.Recognizer)
				assert.Equal(t, "1712.34", a.Text)
				require.Len(t, a.Steps, 1)
			},
		},
		{
			name:  "tool block ignored without steps",
			input: &Input{Raw: toolTranscript, Steps: []models.ToolStep{{Action: "sql_db_query", Input: "x"}}},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerVerbatim, a.Recognizer)
				assert.Nil(t, a.Steps)
			},
		},
		{
			name:         "caller steps attached to marker answers",
			includeSteps: true,
			input:        &Input{Raw: "Final Answer: ok", Steps: []models.ToolStep{{Action: "search", Input: "茅台"}}},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, []models.ToolStep{{Action: "search", Input: "茅台"}}, a.Steps)
			},
		},
		{
			name:  "heuristic result text",
			input: &Input{Raw: "截至2024-03-14，市值2.15万亿元，年内涨幅3.2%"},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerHeuristic, a.Recognizer)
				assert.False(t, a.Verbatim)
			},
		},
		{
			name:    "one literal kind is not enough",
			input:   &Input{Raw: "涨幅3.2%"},
			wantErr: errors.ErrCodeOutputUnparseable,
		},
		{
			name:  "verbatim last resort",
			input: &Input{Raw: "  The company keeps a strong brand and pricing power in premium liquor.  "},
			validateOutput: func(t *testing.T, a *models.FinalAnswer) {
				assert.Equal(t, RecognizerVerbatim, a.Recognizer)
				assert.True(t, a.Verbatim)
				assert.Equal(t, "The company keeps a strong brand and pricing power in premium liquor.", a.Text)
			},
		},
		{
			name:    "short text",
			input:   &Input{Raw: "I don't know"},
			wantErr: errors.ErrCodeOutputUnparseable,
		},
		{
			name:    "empty marker payload falls through",
			input:   &Input{Raw: "Final Answer:"},
			wantErr: errors.ErrCodeOutputUnparseable,
		},
		{
			name:    "blank",
			input:   &Input{Raw: "   \n"},
			wantErr: errors.ErrCodeOutputUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			config.IncludeSteps = tt.includeSteps
			h := NewHandler(config, logger.NewTestLogger(t))

			answer, serr := h.Normalize(tt.input)
			if tt.wantErr != "" {
				assert.Nil(t, answer)
				require.NotNil(t, serr)
				assert.Equal(t, tt.wantErr, serr.Code)
				return
			}
			require.Nil(t, serr)
			require.NotNil(t, answer)
			tt.validateOutput(t, answer)
		})
	}
}

func TestHandler_UnparseablePreview(t *testing.T) {
	config := createTestConfig()
	config.MinVerbatimLength = 1000
	h := NewHandler(config, logger.NewNoOpLogger())

	_, serr := h.Normalize(&Input{Raw: strings.Repeat("无法解析", 10)})
	require.NotNil(t, serr)
	assert.Equal(t, strings.Repeat("无法解析", 4), serr.Detail["preview"])
}

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(createTestConfig(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Raw: "Final Answer: yes"})
	require.NoError(t, err)
	assert.Equal(t, "yes", out.Answer.Text)
	assert.Nil(t, out.Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Execute(ctx, &Input{Raw: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Properties
// ==========================

func TestProperty_ExactlyOneOutcome(t *testing.T) {
	h := NewHandler(&Config{MinVerbatimLength: 20, IncludeSteps: true, PreviewLength: 50}, logger.NewNoOpLogger())

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`(Final Answer|最终答案)[:：] ?[a-z0-9 ]{0,20}`),
			rapid.StringMatching(`Action: [a-z_]{1,10}\nAction Input: [a-z ]{1,20}`),
		).Draw(t, "raw")

		a1, e1 := h.Normalize(&Input{Raw: raw})
		if (a1 == nil) == (e1 == nil) {
			t.Fatalf("want exactly one of answer or error for %q", raw)
		}
		a2, _ := h.Normalize(&Input{Raw: raw})
		if a1 != nil && (a2 == nil || a1.Text != a2.Text || a1.Recognizer != a2.Recognizer) {
			t.Fatalf("normalize is not deterministic for %q", raw)
		}
	})
}
