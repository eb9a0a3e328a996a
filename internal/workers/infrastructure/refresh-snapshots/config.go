// internal/workers/infrastructure/refresh-snapshots/config.go
package refreshsnapshots

import "time"

type Config struct {
	// Interval between background refreshes; zero disables the ticker.
	Interval time.Duration
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Interval: time.Hour,
		Timeout:  30 * time.Second,
	}
}
