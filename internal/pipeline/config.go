// internal/pipeline/config.go
package pipeline

import "time"

type Config struct {
	// RequestTimeout bounds a question that carries no deadline of its own.
	RequestTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RequestTimeout: 30 * time.Second,
	}
}
