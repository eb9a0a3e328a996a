// internal/models/question.go
package models

import "time"

// Question is one incoming natural-language request. It is never mutated after decoding.
type Question struct {
	Text         string        `json:"questionText"`
	DeclaredHint string        `json:"declaredHint,omitempty"`
	// IncludeSteps asks for the generator's tool steps on a fallback answer,
	// on top of the configured default.
	IncludeSteps bool          `json:"includeSteps,omitempty"`
	Deadline     time.Duration `json:"-"`
}

// ExecutionPath names which branch of the controller produced a result.
type ExecutionPath string

const (
	PathFast     ExecutionPath = "fast"
	PathFallback ExecutionPath = "fallback"
)
