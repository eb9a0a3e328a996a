// internal/workers/resolution/extract-parameters/config.go
package extractparameters

import "time"

type Config struct {
	Timeout time.Duration
	// DefaultLimit fills the limit slot when the question names none.
	DefaultLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		DefaultLimit: 10,
	}
}
