package snapshot

import (
	"time"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
)

// Metadata accompanies every persisted cart snapshot. Version starts at 1 and
// increments by exactly one per successful write from the last read value.
type Metadata struct {
	LastSync time.Time `json:"last_sync"`
	Version  int64     `json:"version"`
	DeviceID string    `json:"device_id"`
	UserID   *string   `json:"user_id"`
}

// Snapshot is the full serialized cart state at a point in time.
type Snapshot struct {
	Items      []cart.Line       `json:"items"`
	Selections cart.SelectionSet `json:"selections"`
	Meta       Metadata          `json:"metadata"`
}

// Result is what a restore-from-storage hands back to the caller.
type Result struct {
	Items      []cart.Line       `json:"items"`
	Selections cart.SelectionSet `json:"selections"`
	IsExpired  bool              `json:"is_expired"`
}

// ConflictField names the part of a snapshot a conflict was resolved on.
type ConflictField string

const (
	ConflictItems      ConflictField = "items"
	ConflictSelections ConflictField = "selections"
)

// Winner side of a resolved conflict.
const (
	WinnerLocal  = "local"
	WinnerRemote = "remote"
	WinnerMerged = "merged"
)

// Conflict is the audit record kept for every resolved version mismatch. It
// is diagnostic output, not an error.
type Conflict struct {
	ID         string        `json:"id"`
	Field      ConflictField `json:"field"`
	Local      any           `json:"local"`
	Remote     any           `json:"remote"`
	Winner     string        `json:"winner"`
	ResolvedAt time.Time     `json:"resolved_at"`
}
