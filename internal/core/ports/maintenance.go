package ports

import "context"

// MaintenanceService runs the periodic device-store sweep: structural
// validation, expiry revalidation, backup pruning and stale session purge.
// Sweep is also the external trigger invoked when the app regains focus.
type MaintenanceService interface {
	// Start runs the periodic sweep loop until ctx is cancelled.
	Start(ctx context.Context)
	// Sweep runs one full sweep now. Individual step failures are logged and
	// never abort the remaining steps.
	Sweep(ctx context.Context)
}
