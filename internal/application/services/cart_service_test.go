package services_test

import (
	"context"
	"testing"

	impl "github.com/pocketmall/shopdata/internal/application/services"
	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/domain/catalog"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/stretchr/testify/require"
)

type inventoryMock struct {
	getFn func(ctx context.Context, id string) (*catalog.Product, error)
}

func (m *inventoryMock) GetProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &catalog.Product{ID: id, Name: "p", Stock: cart.MaxQuantity, Exists: true}, nil
}

// spyBus records published events in order.
type spyBus struct {
	events []cart.Event
}

func (b *spyBus) Init()                                                            {}
func (b *spyBus) Subscribe(cart.EventKind, ports.EventListener) ports.Subscription { return 0 }
func (b *spyBus) Unsubscribe(cart.EventKind, ports.Subscription)                   {}
func (b *spyBus) Publish(evt cart.Event)                                           { b.events = append(b.events, evt) }
func (b *spyBus) Clear()                                                           {}

func (b *spyBus) kinds() []cart.EventKind {
	out := make([]cart.EventKind, len(b.events))
	for i, e := range b.events {
		out[i] = e.Kind
	}
	return out
}

func newCart(t *testing.T, inv ports.InventoryAuthority) (*impl.CartService, *spyBus) {
	t.Helper()
	bus := &spyBus{}
	return impl.NewCartService(bus, inv, nil), bus
}

func TestAddItem_CreatesLine(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})

	res, err := svc.AddItem(context.Background(), "sku-1", 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Quantity)
	require.Equal(t, 1, res.TotalItems)
	require.Equal(t, []cart.EventKind{cart.EventItemAdded}, bus.kinds())

	items := svc.Items()
	require.Len(t, items, 1)
	require.Equal(t, "sku-1", items[0].ProductID)
	require.False(t, items[0].SelectedAt.IsZero())
}

func TestAddItem_TwiceSumsQuantities(t *testing.T) {
	svc, _ := newCart(t, &inventoryMock{})

	_, err := svc.AddItem(context.Background(), "sku-1", 3)
	require.NoError(t, err)
	res, err := svc.AddItem(context.Background(), "sku-1", 4)
	require.NoError(t, err)
	require.Equal(t, 7, res.Quantity)
	require.Equal(t, 1, res.TotalItems)
}

func TestAddItem_ClampsAtMaxQuantity(t *testing.T) {
	svc, _ := newCart(t, &inventoryMock{})

	_, err := svc.AddItem(context.Background(), "sku-1", cart.MaxQuantity)
	require.NoError(t, err)
	res, err := svc.AddItem(context.Background(), "sku-1", 10)
	require.NoError(t, err)
	require.Equal(t, cart.MaxQuantity, res.Quantity)
	require.True(t, res.Clamped)
}

func TestAddItem_ClampsToAvailableStock(t *testing.T) {
	inv := &inventoryMock{getFn: func(ctx context.Context, id string) (*catalog.Product, error) {
		return &catalog.Product{ID: id, Stock: 5, Exists: true}, nil
	}}
	svc, _ := newCart(t, inv)

	res, err := svc.AddItem(context.Background(), "sku-1", 20)
	require.NoError(t, err)
	require.Equal(t, 5, res.Quantity)
	require.True(t, res.Clamped)
}

func TestAddItem_UnknownProductRejected(t *testing.T) {
	inv := &inventoryMock{getFn: func(ctx context.Context, id string) (*catalog.Product, error) {
		return &catalog.Product{ID: id, Exists: false}, nil
	}}
	svc, bus := newCart(t, inv)

	_, err := svc.AddItem(context.Background(), "ghost", 1)
	require.Error(t, err)
	require.Empty(t, bus.events)
}

func TestSetQuantity_ZeroOrBelowRemovesLine(t *testing.T) {
	for _, q := range []int{0, -1, -99} {
		svc, bus := newCart(t, &inventoryMock{})
		_, err := svc.AddItem(context.Background(), "sku-1", 2)
		require.NoError(t, err)
		_, err = svc.ToggleSelection(context.Background(), "sku-1")
		require.NoError(t, err)

		_, err = svc.SetQuantity(context.Background(), "sku-1", q)
		require.NoError(t, err)
		require.Empty(t, svc.Items())
		require.Empty(t, svc.Selections())
		require.Equal(t, cart.EventItemRemoved, bus.events[len(bus.events)-1].Kind)
	}
}

func TestSetQuantity_UpdatesLine(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})
	_, err := svc.AddItem(context.Background(), "sku-1", 2)
	require.NoError(t, err)

	res, err := svc.SetQuantity(context.Background(), "sku-1", 9)
	require.NoError(t, err)
	require.Equal(t, 9, res.Quantity)
	require.Equal(t, cart.EventItemUpdated, bus.events[len(bus.events)-1].Kind)
}

func TestSetQuantity_MissingLineRejected(t *testing.T) {
	svc, _ := newCart(t, &inventoryMock{})
	_, err := svc.SetQuantity(context.Background(), "missing", 3)
	require.Error(t, err)
}

func TestRemoveItem_DropsSelectionToo(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})
	_, err := svc.AddItem(context.Background(), "sku-1", 1)
	require.NoError(t, err)
	_, err = svc.ToggleSelection(context.Background(), "sku-1")
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), "sku-1")
	require.NoError(t, err)
	require.Empty(t, svc.Items())
	require.Empty(t, svc.Selections())
	require.Equal(t, cart.EventItemRemoved, bus.events[len(bus.events)-1].Kind)
}

func TestToggleSelection_UnknownProductRejected(t *testing.T) {
	svc, _ := newCart(t, &inventoryMock{})
	_, err := svc.ToggleSelection(context.Background(), "missing")
	require.Error(t, err)
}

func TestSelectionBulkOperations(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.AddItem(context.Background(), id, 1)
		require.NoError(t, err)
	}

	_, err := svc.SelectAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, cart.SelectionSet{"a": true, "b": true, "c": true}, svc.Selections())
	require.Equal(t, cart.EventBatchCompleted, bus.events[len(bus.events)-1].Kind)

	_, err = svc.ClearSelections(context.Background())
	require.NoError(t, err)
	require.Empty(t, svc.Selections())

	// SelectMany ignores ids without a matching line.
	_, err = svc.SelectMany(context.Background(), []string{"a", "ghost"})
	require.NoError(t, err)
	require.Equal(t, cart.SelectionSet{"a": true}, svc.Selections())
}

func TestClear_EmptiesEverything(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})
	_, err := svc.AddItem(context.Background(), "sku-1", 5)
	require.NoError(t, err)
	_, err = svc.ToggleSelection(context.Background(), "sku-1")
	require.NoError(t, err)

	res, err := svc.Clear(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.TotalItems)
	require.Empty(t, svc.Items())
	require.Empty(t, svc.Selections())
	require.Equal(t, cart.EventCartCleared, bus.events[len(bus.events)-1].Kind)
}

func TestReplace_PrunesOrphanSelections(t *testing.T) {
	svc, bus := newCart(t, &inventoryMock{})

	lines := []cart.Line{{ProductID: "a", Quantity: 1}}
	svc.Replace(lines, cart.SelectionSet{"a": true, "orphan": true})

	require.Equal(t, cart.SelectionSet{"a": true}, svc.Selections())
	// Restores never publish mutation events.
	require.Empty(t, bus.events)
}
