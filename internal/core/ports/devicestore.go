package ports

import (
	"context"
	"fmt"
)

// DeviceStore is the device-local key-value store every persisted artifact
// lands in. Implementations should degrade gracefully (returning an error
// without crashing callers) so read paths can fall back to defaults.
type DeviceStore interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// StorageError wraps a device store failure on an explicit persist path.
// Read paths swallow store failures and fall back; explicit persist calls
// surface this type so the caller can retry or inform the user.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("device store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
