// internal/workers/infrastructure/refresh-snapshots/models.go
package refreshsnapshots

type Input struct {
	// Force drops the shared Redis copies before reloading.
	Force bool `json:"force"`
}

type Output struct {
	Refreshed  []string `json:"refreshed"`
	DurationMs int64    `json:"durationMs"`
	// Shared is true when the call joined a refresh already in flight.
	Shared bool `json:"shared"`
}
