// internal/models/envelope.go
package models

// ResultEnvelope is the single response shape for both paths.
type ResultEnvelope struct {
	RequestID       string           `json:"requestId"`
	Success         bool             `json:"success"`
	Data            interface{}      `json:"data,omitempty"`
	Error           *EnvelopeError   `json:"error,omitempty"`
	ExecutionPath   ExecutionPath    `json:"executionPath"`
	MatchedTemplate string           `json:"matchedTemplate,omitempty"`
	Metadata        EnvelopeMetadata `json:"metadata"`
}

type EnvelopeError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Detail  map[string]string `json:"detail,omitempty"`
}

type EnvelopeMetadata struct {
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	DurationMs int64  `json:"durationMs"`
}

// QueryResult is the fast-path payload.
type QueryResult struct {
	Template        string                   `json:"template"`
	Rows            []map[string]interface{} `json:"rows"`
	RowCount        int                      `json:"rowCount"`
	ExecutionTimeMs int64                    `json:"executionTimeMs"`
	Period          *ResolvedPeriod          `json:"period,omitempty"`
}

// ToolStep is one intermediate generator action, surfaced only on request.
type ToolStep struct {
	Action string `json:"action"`
	Input  string `json:"input"`
}

// FinalAnswer is the fallback-path payload after output normalization.
type FinalAnswer struct {
	Text       string     `json:"text"`
	Recognizer string     `json:"recognizer"`
	Verbatim   bool       `json:"verbatim,omitempty"`
	Steps      []ToolStep `json:"steps,omitempty"`
}
