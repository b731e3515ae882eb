package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/domain/snapshot"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Device store keys owned by the synchronizer.
const (
	keyCartItems    = "cart_items"
	keyCartSel      = "cart_selections"
	keyCartMeta     = "cart_sync_metadata"
	keyBadgeCount   = "cart_badge_count"
	keyDeviceID     = "device_id"
	backupKeyPrefix = "cart_backup_"
)

// CartState is the narrow read-only view the synchronizer uses when no
// explicit snapshot is passed.
type CartState interface {
	Items() []cart.Line
	Selections() cart.SelectionSet
}

// SyncService writes versioned, timestamped cart snapshots to the device
// store, restores them across restarts, and resolves conflicts between
// concurrently saved snapshots.
type SyncService struct {
	store     ports.DeviceStore
	inventory ports.InventoryAuthority
	cartState CartState
	userID    string
	expiry    time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSyncService(store ports.DeviceStore, inventory ports.InventoryAuthority, cartState CartState, userID string, expiryDays int, logger *logrus.Logger) *SyncService {
	if expiryDays <= 0 {
		expiryDays = 7
	}
	return &SyncService{
		store:     store,
		inventory: inventory,
		cartState: cartState,
		userID:    userID,
		expiry:    time.Duration(expiryDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *SyncService) SyncToStorage(ctx context.Context) (*snapshot.Metadata, error) {
	return s.SyncSnapshot(ctx, s.cartState.Items(), s.cartState.Selections())
}

// SyncSnapshot persists the given state under an incremented version. Store
// write failures surface as *ports.StorageError: loss of persistence is a
// correctness problem on this path.
func (s *SyncService) SyncSnapshot(ctx context.Context, items []cart.Line, selections cart.SelectionSet) (*snapshot.Metadata, error) {
	deviceID, err := s.deviceID(ctx)
	if err != nil {
		return nil, err
	}

	meta := snapshot.Metadata{
		LastSync: s.now(),
		Version:  1,
		DeviceID: deviceID,
	}
	if s.userID != "" {
		uid := s.userID
		meta.UserID = &uid
	}
	if prev, ok := s.readMetadata(ctx); ok {
		meta.Version = prev.Version + 1
	}

	if items == nil {
		items = []cart.Line{}
	}
	if selections == nil {
		selections = cart.SelectionSet{}
	}

	if err := s.writeJSON(ctx, keyCartItems, items); err != nil {
		return nil, err
	}
	if err := s.writeJSON(ctx, keyCartSel, selections); err != nil {
		return nil, err
	}
	if err := s.writeJSON(ctx, keyCartMeta, meta); err != nil {
		return nil, err
	}
	// The badge mirror is best effort; the snapshot is already consistent.
	if err := s.writeJSON(ctx, keyBadgeCount, cart.TotalQuantity(items)); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to mirror cart badge count")
	}

	syncWrites.Inc()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"version": meta.Version,
			"items":   len(items),
		}).Debug("cart snapshot persisted")
	}
	return &meta, nil
}

// SyncFromStorage restores the persisted snapshot. Structurally invalid data
// is backed up and purged, returning an empty state. An expired snapshot is
// revalidated line by line against the inventory authority and written back
// before being returned.
func (s *SyncService) SyncFromStorage(ctx context.Context) (*snapshot.Result, error) {
	rawItems, itemsFound, itemsErr := s.store.Get(ctx, keyCartItems)
	rawSel, selFound, selErr := s.store.Get(ctx, keyCartSel)
	rawMeta, metaFound, metaErr := s.store.Get(ctx, keyCartMeta)

	// A failed read is not corruption: the stored bytes may be fine. Serve an
	// empty cart and leave the entries in place for the next attempt.
	if err := firstError(itemsErr, selErr, metaErr); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("device store read failed, serving empty cart")
		}
		return &snapshot.Result{Items: []cart.Line{}, Selections: cart.SelectionSet{}}, nil
	}

	if !itemsFound && !selFound && !metaFound {
		// Cold start on a fresh device.
		return &snapshot.Result{Items: []cart.Line{}, Selections: cart.SelectionSet{}}, nil
	}

	items, selections, meta, ok := decodeStored(rawItems, rawSel, rawMeta)
	if !ok {
		s.cleanupInvalidData(ctx, rawItems, rawSel, rawMeta)
		return &snapshot.Result{Items: []cart.Line{}, Selections: cart.SelectionSet{}}, nil
	}

	selections.Prune(items)

	isExpired := s.now().Sub(meta.LastSync) > s.expiry
	if !isExpired {
		return &snapshot.Result{Items: items, Selections: selections, IsExpired: false}, nil
	}

	revalidated := s.revalidateLines(ctx, items)
	selections.Prune(revalidated)

	if _, err := s.SyncSnapshot(ctx, revalidated, selections); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to persist revalidated snapshot")
	}
	return &snapshot.Result{Items: revalidated, Selections: selections, IsExpired: true}, nil
}

// revalidateLines drops lines whose product vanished or reports zero stock
// and clamps quantities to available stock.
func (s *SyncService) revalidateLines(ctx context.Context, items []cart.Line) []cart.Line {
	if s.inventory == nil {
		return items
	}
	kept := make([]cart.Line, 0, len(items))
	for _, line := range items {
		p, err := s.inventory.GetProductByID(ctx, line.ProductID)
		if err != nil {
			// Authority unreachable: keep the line, the next sweep retries.
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"product_id": line.ProductID}).WithError(err).Warn("inventory revalidation failed, keeping line")
			}
			kept = append(kept, line)
			continue
		}
		if !p.InStock() {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"product_id": line.ProductID}).Info("dropping unavailable cart line")
			}
			continue
		}
		if line.Quantity > p.Stock {
			line.Quantity = p.Stock
		}
		kept = append(kept, line)
	}
	return kept
}

// ResolveConflicts applies the documented policy to two snapshots with
// diverging versions: lines follow the newer LastSync wholesale, selections
// merge key by key with local precedence. The returned records are audit
// output, not errors. Concurrent edits to the same line on two devices
// between syncs will drop one side; that is a known limitation.
func (s *SyncService) ResolveConflicts(local, remote *snapshot.Snapshot) (*snapshot.Snapshot, []snapshot.Conflict) {
	if local == nil {
		return remote, nil
	}
	if remote == nil {
		return local, nil
	}
	if local.Meta.Version == remote.Meta.Version {
		return local, nil
	}

	now := s.now()
	var conflicts []snapshot.Conflict

	itemsWinner := snapshot.WinnerLocal
	resolved := &snapshot.Snapshot{Items: local.Items, Meta: local.Meta}
	if remote.Meta.LastSync.After(local.Meta.LastSync) {
		itemsWinner = snapshot.WinnerRemote
		resolved.Items = remote.Items
		resolved.Meta = remote.Meta
	}
	conflicts = append(conflicts, snapshot.Conflict{
		ID:         uuid.NewString(),
		Field:      snapshot.ConflictItems,
		Local:      local.Items,
		Remote:     remote.Items,
		Winner:     itemsWinner,
		ResolvedAt: now,
	})

	merged := remote.Selections.Clone()
	for id, v := range local.Selections {
		merged[id] = v
	}
	resolved.Selections = merged
	conflicts = append(conflicts, snapshot.Conflict{
		ID:         uuid.NewString(),
		Field:      snapshot.ConflictSelections,
		Local:      local.Selections,
		Remote:     remote.Selections,
		Winner:     snapshot.WinnerMerged,
		ResolvedAt: now,
	})

	if local.Meta.Version > resolved.Meta.Version {
		resolved.Meta.Version = local.Meta.Version
	}
	if remote.Meta.Version > resolved.Meta.Version {
		resolved.Meta.Version = remote.Meta.Version
	}
	resolved.Selections.Prune(resolved.Items)

	syncConflicts.Add(float64(len(conflicts)))
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"local_version":  local.Meta.Version,
			"remote_version": remote.Meta.Version,
			"items_winner":   itemsWinner,
		}).Info("resolved snapshot conflict")
	}
	return resolved, conflicts
}

// ValidateStoredData is the pure structural check: expected shapes and
// required metadata fields, nothing semantic. Never errors.
func (s *SyncService) ValidateStoredData(ctx context.Context) bool {
	rawItems, itemsFound, itemsErr := s.store.Get(ctx, keyCartItems)
	rawSel, selFound, selErr := s.store.Get(ctx, keyCartSel)
	rawMeta, metaFound, metaErr := s.store.Get(ctx, keyCartMeta)
	if firstError(itemsErr, selErr, metaErr) != nil {
		// Unreadable is not provably invalid.
		return true
	}
	if !itemsFound && !selFound && !metaFound {
		return true
	}
	_, _, _, ok := decodeStored(rawItems, rawSel, rawMeta)
	return ok
}

// cleanupInvalidData backs up the raw entries under a timestamped key, then
// deletes them. The backup is diagnostic: corruption should stay inspectable,
// so the raw bytes go in as base64 rather than lossy UTF-8.
func (s *SyncService) cleanupInvalidData(ctx context.Context, rawItems, rawSel, rawMeta []byte) {
	backup := map[string]any{
		"id":           uuid.NewString(),
		"items":        rawItems,
		"selections":   rawSel,
		"metadata":     rawMeta,
		"backed_up_at": s.now().Format(time.RFC3339),
	}
	key := fmt.Sprintf("%s%d", backupKeyPrefix, s.now().UnixMilli())
	if b, err := json.Marshal(backup); err == nil {
		if err := s.store.Set(ctx, key, b); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("failed to write corruption backup")
		} else {
			backupsCreated.Inc()
		}
	}

	for _, k := range []string{keyCartItems, keyCartSel, keyCartMeta, keyBadgeCount} {
		if err := s.store.Delete(ctx, k); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": k}).WithError(err).Warn("failed to purge invalid entry")
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"backup_key": key}).Warn("stored cart data failed validation, backed up and purged")
	}
}

// PruneBackups keeps the newest `keep` corruption backups and deletes the
// rest. Backup keys embed a unix-milli timestamp, so lexicographic order is
// chronological.
func (s *SyncService) PruneBackups(ctx context.Context, keep int) error {
	keys, err := s.store.Keys(ctx, backupKeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(keys) <= keep {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, k := range keys[keep:] {
		if err := s.store.Delete(ctx, k); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": k}).WithError(err).Warn("failed to delete old backup")
		}
	}
	return nil
}

func (s *SyncService) deviceID(ctx context.Context) (string, error) {
	if b, ok, err := s.store.Get(ctx, keyDeviceID); err == nil && ok && len(b) > 0 {
		return string(b), nil
	}
	id := uuid.NewString()
	if err := s.store.Set(ctx, keyDeviceID, []byte(id)); err != nil {
		return "", &ports.StorageError{Op: "set", Key: keyDeviceID, Err: err}
	}
	return id, nil
}

func (s *SyncService) readMetadata(ctx context.Context) (*snapshot.Metadata, bool) {
	b, ok, err := s.store.Get(ctx, keyCartMeta)
	if err != nil || !ok {
		return nil, false
	}
	var meta snapshot.Metadata
	if json.Unmarshal(b, &meta) != nil || !metadataValid(&meta) {
		return nil, false
	}
	return &meta, true
}

func (s *SyncService) writeJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &ports.StorageError{Op: "marshal", Key: key, Err: err}
	}
	if err := s.store.Set(ctx, key, b); err != nil {
		return &ports.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// decodeStored checks the three raw entries against their expected shapes.
// The check is structural: a line that decodes but carries unusable values is
// normalized away instead of condemning the whole store.
func decodeStored(rawItems, rawSel, rawMeta []byte) ([]cart.Line, cart.SelectionSet, *snapshot.Metadata, bool) {
	var decoded []cart.Line
	if rawItems == nil || json.Unmarshal(rawItems, &decoded) != nil {
		return nil, nil, nil, false
	}
	items := make([]cart.Line, 0, len(decoded))
	for _, l := range decoded {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if l.Quantity > cart.MaxQuantity {
			l.Quantity = cart.MaxQuantity
		}
		items = append(items, l)
	}

	var selections cart.SelectionSet
	if rawSel == nil || json.Unmarshal(rawSel, &selections) != nil {
		return nil, nil, nil, false
	}
	if selections == nil {
		selections = cart.SelectionSet{}
	}

	var meta snapshot.Metadata
	if rawMeta == nil || json.Unmarshal(rawMeta, &meta) != nil || !metadataValid(&meta) {
		return nil, nil, nil, false
	}

	return items, selections, &meta, true
}

func metadataValid(meta *snapshot.Metadata) bool {
	return meta.Version >= 1 && meta.DeviceID != "" && !meta.LastSync.IsZero()
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

var _ ports.SyncService = (*SyncService)(nil)
