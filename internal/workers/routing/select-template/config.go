// internal/workers/routing/select-template/config.go
package selecttemplate

import "time"

type Config struct {
	// RegistryPath overrides the embedded template registry when set.
	RegistryPath string `mapstructure:"registry_path"`
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: time.Second,
	}
}
