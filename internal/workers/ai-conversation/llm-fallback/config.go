// internal/workers/ai-conversation/llm-fallback/config.go
package llmfallback

import "time"

type Config struct {
	GenAIBaseURL      string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
	Burst             int
	// IncludeSteps asks the generator to return its intermediate tool steps.
	IncludeSteps bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           60 * time.Second,
		MaxRetries:        2,
		MaxTokens:         2048,
		Temperature:       0.1,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}
