package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/domain/catalog"
	"github.com/pocketmall/shopdata/internal/core/domain/snapshot"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/pocketmall/shopdata/internal/infrastructure/devicestore"
	"github.com/stretchr/testify/require"
)

type stubInventory struct {
	getFn func(ctx context.Context, id string) (*catalog.Product, error)
	calls int
}

func (s *stubInventory) GetProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	s.calls++
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &catalog.Product{ID: id, Stock: cart.MaxQuantity, Exists: true}, nil
}

func newSyncService(store *devicestore.MemoryStore, inv *stubInventory, now time.Time) *SyncService {
	svc := NewSyncService(store, inv, nil, "user-1", 7, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSyncSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	items := []cart.Line{
		{ProductID: "a", Quantity: 2, SelectedAt: time.Now().UTC().Truncate(time.Second)},
		{ProductID: "b", Quantity: 1, SelectedAt: time.Now().UTC().Truncate(time.Second)},
	}
	selections := cart.SelectionSet{"a": true, "b": false}

	meta, err := svc.SyncSnapshot(ctx, items, selections)
	require.NoError(t, err)
	require.EqualValues(t, 1, meta.Version)
	require.NotEmpty(t, meta.DeviceID)
	require.NotNil(t, meta.UserID)
	require.Equal(t, "user-1", *meta.UserID)

	res, err := svc.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.False(t, res.IsExpired)
	require.Equal(t, items, res.Items)
	require.Equal(t, selections, res.Selections)
}

func TestSyncSnapshot_VersionIncrementsPerWrite(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	for want := int64(1); want <= 3; want++ {
		meta, err := svc.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 1}}, nil)
		require.NoError(t, err)
		require.Equal(t, want, meta.Version)
	}
}

func TestSyncSnapshot_ReusesDeviceID(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	m1, err := svc.SyncSnapshot(ctx, nil, nil)
	require.NoError(t, err)
	m2, err := svc.SyncSnapshot(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, m1.DeviceID, m2.DeviceID)
}

func TestSyncFromStorage_ColdStart(t *testing.T) {
	svc := newSyncService(devicestore.NewMemoryStore(), nil, time.Now())

	res, err := svc.SyncFromStorage(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Empty(t, res.Selections)
	require.False(t, res.IsExpired)
}

func TestSyncFromStorage_FreshSnapshotSkipsRevalidation(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	inv := &stubInventory{}
	now := time.Now()

	writer := newSyncService(store, inv, now)
	_, err := writer.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 1}}, nil)
	require.NoError(t, err)

	reader := newSyncService(store, inv, now.Add(6*24*time.Hour))
	res, err := reader.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.False(t, res.IsExpired)
	require.Zero(t, inv.calls)
}

func TestSyncFromStorage_ExpiredSnapshotIsRevalidated(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	now := time.Now()

	writer := newSyncService(store, nil, now)
	items := []cart.Line{
		{ProductID: "gone", Quantity: 2},
		{ProductID: "low", Quantity: 50},
		{ProductID: "fine", Quantity: 3},
	}
	_, err := writer.SyncSnapshot(ctx, items, cart.SelectionSet{"gone": true, "fine": true})
	require.NoError(t, err)

	inv := &stubInventory{getFn: func(ctx context.Context, id string) (*catalog.Product, error) {
		switch id {
		case "gone":
			return &catalog.Product{ID: id, Stock: 0, Exists: true}, nil
		case "low":
			return &catalog.Product{ID: id, Stock: 10, Exists: true}, nil
		default:
			return &catalog.Product{ID: id, Stock: 100, Exists: true}, nil
		}
	}}
	reader := newSyncService(store, inv, now.Add(8*24*time.Hour))

	res, err := reader.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.True(t, res.IsExpired)
	require.Equal(t, []cart.Line{
		{ProductID: "low", Quantity: 10},
		{ProductID: "fine", Quantity: 3},
	}, res.Items)
	require.Equal(t, cart.SelectionSet{"fine": true}, res.Selections)

	// The revalidated state is written back under a bumped version.
	again, err := reader.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.False(t, again.IsExpired)
	require.Equal(t, res.Items, again.Items)
}

func TestSyncFromStorage_ExpiredKeepsLinesWhenAuthorityUnreachable(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	now := time.Now()

	writer := newSyncService(store, nil, now)
	_, err := writer.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 4}}, nil)
	require.NoError(t, err)

	inv := &stubInventory{getFn: func(ctx context.Context, id string) (*catalog.Product, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	reader := newSyncService(store, inv, now.Add(8*24*time.Hour))

	res, err := reader.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.True(t, res.IsExpired)
	require.Equal(t, []cart.Line{{ProductID: "a", Quantity: 4}}, res.Items)
}

func TestSyncFromStorage_InvalidDataBackedUpAndPurged(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	require.NoError(t, store.Set(ctx, keyCartItems, []byte(`{"not":"a list"}`)))
	require.NoError(t, store.Set(ctx, keyCartSel, []byte(`{}`)))
	require.NoError(t, store.Set(ctx, keyCartMeta, []byte(`{}`)))

	res, err := svc.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Empty(t, res.Selections)

	for _, k := range []string{keyCartItems, keyCartSel, keyCartMeta} {
		_, found, err := store.Get(ctx, k)
		require.NoError(t, err)
		require.False(t, found, "expected %s to be purged", k)
	}
	backups, err := store.Keys(ctx, backupKeyPrefix)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	require.True(t, strings.HasPrefix(backups[0], backupKeyPrefix))
}

func TestValidateStoredData(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	// Nothing stored at all is valid.
	require.True(t, svc.ValidateStoredData(ctx))

	_, err := svc.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 1}}, nil)
	require.NoError(t, err)
	require.True(t, svc.ValidateStoredData(ctx))

	// Shape check only: decodable lines with unusable values are normalized,
	// not treated as corruption.
	require.NoError(t, store.Set(ctx, keyCartItems, []byte(`[{"product_id":"","quantity":0}]`)))
	require.True(t, svc.ValidateStoredData(ctx))

	require.NoError(t, store.Set(ctx, keyCartItems, []byte(`garbage`)))
	require.False(t, svc.ValidateStoredData(ctx))

	require.NoError(t, store.Set(ctx, keyCartItems, []byte(`[]`)))
	require.NoError(t, store.Set(ctx, keyCartMeta, []byte(`{"version":0}`)))
	require.False(t, svc.ValidateStoredData(ctx))
}

func TestResolveConflicts_NewerItemsWinAndSelectionsMerge(t *testing.T) {
	svc := newSyncService(devicestore.NewMemoryStore(), nil, time.Now())
	base := time.Now()

	lines := []cart.Line{
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 2},
		{ProductID: "c", Quantity: 3},
	}
	local := &snapshot.Snapshot{
		Items:      lines,
		Selections: cart.SelectionSet{"a": true, "b": false},
		Meta:       snapshot.Metadata{LastSync: base, Version: 3, DeviceID: "dev-local"},
	}
	remote := &snapshot.Snapshot{
		Items:      lines,
		Selections: cart.SelectionSet{"a": false, "b": true, "c": true},
		Meta:       snapshot.Metadata{LastSync: base.Add(time.Minute), Version: 5, DeviceID: "dev-remote"},
	}

	resolved, conflicts := svc.ResolveConflicts(local, remote)
	require.Len(t, conflicts, 2)
	require.Equal(t, snapshot.WinnerRemote, conflicts[0].Winner)
	require.Equal(t, snapshot.WinnerMerged, conflicts[1].Winner)

	// Local flags take precedence per key, remote-only keys survive.
	require.Equal(t, cart.SelectionSet{"a": true, "b": false, "c": true}, resolved.Selections)
	require.EqualValues(t, 5, resolved.Meta.Version)
	require.Equal(t, "dev-remote", resolved.Meta.DeviceID)
}

func TestResolveConflicts_EqualVersionsNoConflict(t *testing.T) {
	svc := newSyncService(devicestore.NewMemoryStore(), nil, time.Now())

	local := &snapshot.Snapshot{Meta: snapshot.Metadata{Version: 2}}
	remote := &snapshot.Snapshot{Meta: snapshot.Metadata{Version: 2}}

	resolved, conflicts := svc.ResolveConflicts(local, remote)
	require.Same(t, local, resolved)
	require.Empty(t, conflicts)
}

func TestResolveConflicts_NilSides(t *testing.T) {
	svc := newSyncService(devicestore.NewMemoryStore(), nil, time.Now())
	snap := &snapshot.Snapshot{Meta: snapshot.Metadata{Version: 1}}

	resolved, conflicts := svc.ResolveConflicts(nil, snap)
	require.Same(t, snap, resolved)
	require.Empty(t, conflicts)

	resolved, conflicts = svc.ResolveConflicts(snap, nil)
	require.Same(t, snap, resolved)
	require.Empty(t, conflicts)
}

func TestPruneBackups_KeepsNewest(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	base := time.Now().UnixMilli()
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("%s%d", backupKeyPrefix, base+int64(i))
		require.NoError(t, store.Set(ctx, key, []byte(`{}`)))
	}

	require.NoError(t, svc.PruneBackups(ctx, 5))

	keys, err := store.Keys(ctx, backupKeyPrefix)
	require.NoError(t, err)
	require.Len(t, keys, 5)
	for _, k := range keys {
		// The three oldest are gone.
		for i := 0; i < 3; i++ {
			require.NotEqual(t, fmt.Sprintf("%s%d", backupKeyPrefix, base+int64(i)), k)
		}
	}
}

// faultyStore fails reads of one key and delegates everything else.
type faultyStore struct {
	ports.DeviceStore
	failKey string
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == f.failKey {
		return nil, false, fmt.Errorf("redis: i/o timeout")
	}
	return f.DeviceStore.Get(ctx, key)
}

func TestSyncFromStorage_ReadErrorServesEmptyWithoutPurging(t *testing.T) {
	ctx := context.Background()
	inner := devicestore.NewMemoryStore()
	now := time.Now()

	writer := newSyncService(inner, nil, now)
	_, err := writer.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 2}}, cart.SelectionSet{"a": true})
	require.NoError(t, err)

	flaky := &faultyStore{DeviceStore: inner, failKey: keyCartItems}
	reader := NewSyncService(flaky, nil, nil, "user-1", 7, nil)
	reader.now = func() time.Time { return now }

	res, err := reader.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Empty(t, res.Selections)

	// The stored snapshot is untouched and no corruption backup was written.
	for _, k := range []string{keyCartItems, keyCartSel, keyCartMeta} {
		_, found, err := inner.Get(ctx, k)
		require.NoError(t, err)
		require.True(t, found, "expected %s to survive the read error", k)
	}
	backups, err := inner.Keys(ctx, backupKeyPrefix)
	require.NoError(t, err)
	require.Empty(t, backups)

	// The same read error does not fail validation either.
	require.True(t, reader.ValidateStoredData(ctx))

	// Once reads recover, the snapshot restores intact.
	res, err = writer.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.Equal(t, []cart.Line{{ProductID: "a", Quantity: 2}}, res.Items)
}

func TestSyncFromStorage_UnusableLinesNormalizedNotPurged(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	_, err := svc.SyncSnapshot(ctx, []cart.Line{{ProductID: "a", Quantity: 2}}, nil)
	require.NoError(t, err)
	raw := `[{"product_id":"a","quantity":2},{"product_id":"","quantity":3},` +
		`{"product_id":"b","quantity":0},{"product_id":"c","quantity":5000}]`
	require.NoError(t, store.Set(ctx, keyCartItems, []byte(raw)))

	res, err := svc.SyncFromStorage(ctx)
	require.NoError(t, err)
	require.Equal(t, []cart.Line{
		{ProductID: "a", Quantity: 2},
		{ProductID: "c", Quantity: cart.MaxQuantity},
	}, res.Items)

	// Normalization never triggers the corruption path.
	backups, err := store.Keys(ctx, backupKeyPrefix)
	require.NoError(t, err)
	require.Empty(t, backups)
}

func TestCleanupBackup_PreservesRawBytes(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	svc := newSyncService(store, nil, time.Now())

	corrupt := []byte{0xff, 0xfe, '{', 0x80}
	require.NoError(t, store.Set(ctx, keyCartItems, corrupt))
	require.NoError(t, store.Set(ctx, keyCartSel, []byte(`{}`)))
	require.NoError(t, store.Set(ctx, keyCartMeta, []byte(`{}`)))

	_, err := svc.SyncFromStorage(ctx)
	require.NoError(t, err)

	backups, err := store.Keys(ctx, backupKeyPrefix)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	b, found, err := store.Get(ctx, backups[0])
	require.NoError(t, err)
	require.True(t, found)

	var backup struct {
		Items      []byte `json:"items"`
		Selections []byte `json:"selections"`
	}
	require.NoError(t, json.Unmarshal(b, &backup))
	// Invalid UTF-8 survives byte for byte through the base64 round trip.
	require.Equal(t, corrupt, backup.Items)
	require.Equal(t, []byte(`{}`), backup.Selections)
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	calls := make(chan struct{}, 10)
	for i := 0; i < 5; i++ {
		d.Trigger("sync", func() { calls <- struct{}{} })
	}

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	select {
	case <-calls:
		t.Fatal("burst produced more than one call")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_FlushRunsImmediately(t *testing.T) {
	d := NewDebouncer(time.Hour)
	defer d.Stop()

	ran := false
	d.Trigger("sync", func() { t.Error("pending trigger should have been cancelled") })
	d.Flush("sync", func() { ran = true })
	require.True(t, ran)
}
