package ports

import (
	"context"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
)

// CartService owns the in-memory cart state and is the only mutation entry
// point. Every successful mutation publishes the corresponding event on the
// bus. Re-invoking an operation with the same arguments after a downstream
// storage failure is safe.
type CartService interface {
	AddItem(ctx context.Context, productID string, quantity int) (*cart.OpResult, error)
	RemoveItem(ctx context.Context, productID string) (*cart.OpResult, error)
	SetQuantity(ctx context.Context, productID string, quantity int) (*cart.OpResult, error)
	ToggleSelection(ctx context.Context, productID string) (*cart.OpResult, error)
	SelectAll(ctx context.Context) (*cart.OpResult, error)
	ClearSelections(ctx context.Context) (*cart.OpResult, error)
	SelectMany(ctx context.Context, productIDs []string) (*cart.OpResult, error)
	Clear(ctx context.Context) (*cart.OpResult, error)

	// Items returns a copy of the current lines.
	Items() []cart.Line
	// Selections returns a copy of the current selection set.
	Selections() cart.SelectionSet
	// TotalQuantity sums quantities across all lines.
	TotalQuantity() int
	// Replace swaps in restored state without publishing mutation events.
	Replace(items []cart.Line, selections cart.SelectionSet)
}
