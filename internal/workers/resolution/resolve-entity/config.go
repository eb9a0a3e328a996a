// internal/workers/resolution/resolve-entity/config.go
package resolveentity

import "time"

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	ShortNamesPath string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		CacheTTL: time.Hour,
	}
}
