// internal/workers/resolution/resolve-period/config.go
package resolveperiod

import "time"

type Config struct {
	Timeout      time.Duration
	LookbackDays int
	CacheTTL     time.Duration
	// HistoryDays bounds how far back the calendar snapshot is loaded.
	HistoryDays int
	Location    *time.Location
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		LookbackDays: 30,
		CacheTTL:     time.Hour,
		HistoryDays:  3 * 366,
		Location:     shanghai(),
	}
}

func shanghai() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}
