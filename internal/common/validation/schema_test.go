package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hintSchema = `{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "limit": {"type": "integer", "minimum": 1, "maximum": 1000}
  }
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile("test-hints", hintSchema)

	tests := []struct {
		name      string
		doc       interface{}
		wantValid bool
		wantField string
	}{
		{"valid", map[string]interface{}{"question": "q", "limit": 10}, true, ""},
		{"missing question", map[string]interface{}{"limit": 10}, false, "(root)"},
		{"limit too big", map[string]interface{}{"question": "q", "limit": 5000}, false, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			if tt.wantField != "" {
				assert.True(t, res.HasErrors(tt.wantField), res.GetErrorMessages())
			}
		})
	}
}

func TestCompile_Memoized(t *testing.T) {
	a, err := Compile("memo", hintSchema)
	require.NoError(t, err)
	b, err := Compile("memo", `not json`)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}
