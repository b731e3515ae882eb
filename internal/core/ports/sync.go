package ports

import (
	"context"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/domain/snapshot"
)

// SyncService persists cart state to the device store and restores it across
// restarts. Write failures surface as *StorageError; restore failures degrade
// to an empty state after backing up whatever was there.
type SyncService interface {
	// SyncToStorage persists the current cart state with incremented version
	// metadata.
	SyncToStorage(ctx context.Context) (*snapshot.Metadata, error)
	// SyncSnapshot persists an explicit set of lines and selections.
	SyncSnapshot(ctx context.Context, items []cart.Line, selections cart.SelectionSet) (*snapshot.Metadata, error)
	// SyncFromStorage reads, validates, revalidates (when expired) and
	// returns the stored state.
	SyncFromStorage(ctx context.Context) (*snapshot.Result, error)
	// ResolveConflicts applies the documented resolution policy to two
	// snapshots with diverging versions and reports the audit records.
	ResolveConflicts(local, remote *snapshot.Snapshot) (*snapshot.Snapshot, []snapshot.Conflict)
	// ValidateStoredData performs the pure structural check. Never errors.
	ValidateStoredData(ctx context.Context) bool
	// PruneBackups keeps the newest `keep` corruption backups.
	PruneBackups(ctx context.Context, keep int) error
}
