// internal/workers/routing/validate-parameters/config.go
package validateparameters

import "time"

type Config struct {
	Timeout  time.Duration
	MinLimit int
	MaxLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  time.Second,
		MinLimit: 1,
		MaxLimit: 1000,
	}
}
