// internal/workers/ai-conversation/normalize-output/config.go
package normalizeoutput

type Config struct {
	// MinVerbatimLength is the rune count below which raw text is not returned as-is.
	MinVerbatimLength int
	IncludeSteps      bool
	PreviewLength     int
}

func LoadConfig() *Config {
	return &Config{
		MinVerbatimLength: 20,
		PreviewLength:     200,
	}
}
