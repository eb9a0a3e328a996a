// internal/workers/ai-conversation/llm-fallback/models.go
package llmfallback

import "query-router/internal/models"

type Input struct {
	Question string `json:"question"`
	Hints    Hints  `json:"hints"`

	// IncludeSteps requests intermediate tool steps for this call on top of
	// the handler default.
	IncludeSteps bool `json:"includeSteps,omitempty"`
}

// Hints are the values already resolved before the router gave up on the fast path.
type Hints struct {
	Entities   []HintEntity           `json:"entities,omitempty"`
	Sector     string                 `json:"sector,omitempty"`
	Period     *models.ResolvedPeriod `json:"period,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
	Order      string                 `json:"order,omitempty"`
	Exclusions []string               `json:"exclusions,omitempty"`
}

type HintEntity struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Output struct {
	Raw   string            `json:"raw"`
	Steps []models.ToolStep `json:"steps,omitempty"`
}

type generateRequest struct {
	Prompt                  string  `json:"prompt"`
	Hints                   Hints   `json:"hints"`
	MaxTokens               int     `json:"max_tokens"`
	Temperature             float64 `json:"temperature"`
	ReturnIntermediateSteps bool    `json:"return_intermediate_steps"`
}

type generateResponse struct {
	Output            string `json:"output"`
	IntermediateSteps []struct {
		Action      string `json:"action"`
		ActionInput string `json:"action_input"`
	} `json:"intermediate_steps"`
}
