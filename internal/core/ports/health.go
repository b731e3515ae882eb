package ports

import "context"

// HealthChecker probes one of the agent's storage backends for the /health
// report. A nil return means the dependency can serve requests right now.
type HealthChecker interface {
	// Name identifies the probe in the report ("device_store", "redis").
	Name() string
	Check(ctx context.Context) error
}
