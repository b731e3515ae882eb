package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// CartService is the authoritative in-memory cart: lines plus selection
// flags, mutated only through its methods. Every successful mutation
// publishes an event; persistence happens downstream via the bus.
type CartService struct {
	mu         sync.Mutex
	lines      []cart.Line
	selections cart.SelectionSet

	bus       ports.EventBus
	inventory ports.InventoryAuthority
	logger    *logrus.Logger
	now       func() time.Time
}

func NewCartService(bus ports.EventBus, inventory ports.InventoryAuthority, logger *logrus.Logger) *CartService {
	return &CartService{
		selections: cart.SelectionSet{},
		bus:        bus,
		inventory:  inventory,
		logger:     logger,
		now:        time.Now,
	}
}

// stockLimit asks the inventory authority how many units are cartable. An
// unreachable authority returns no limit: availability beats freshness on
// this path. An unknown product is an error.
func (s *CartService) stockLimit(ctx context.Context, productID string) (int, error) {
	if s.inventory == nil {
		return cart.MaxQuantity, nil
	}
	p, err := s.inventory.GetProductByID(ctx, productID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"product_id": productID}).WithError(err).Warn("inventory lookup failed, skipping stock clamp")
		}
		return cart.MaxQuantity, nil
	}
	if !p.Exists {
		return 0, fmt.Errorf("product %q not found in catalog", productID)
	}
	if p.Stock <= 0 {
		return 0, fmt.Errorf("product %q is out of stock", productID)
	}
	if p.Stock < cart.MaxQuantity {
		return p.Stock, nil
	}
	return cart.MaxQuantity, nil
}

func (s *CartService) AddItem(ctx context.Context, productID string, quantity int) (*cart.OpResult, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if quantity <= 0 {
		quantity = 1
	}

	limit, err := s.stockLimit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()

	requested := quantity
	idx := s.indexOfLocked(productID)
	if idx >= 0 {
		requested = s.lines[idx].Quantity + quantity
	}
	final := requested
	clamped := false
	if final > limit {
		final = limit
		clamped = true
	}

	if idx >= 0 {
		s.lines[idx].Quantity = final
	} else {
		s.lines = append(s.lines, cart.Line{ProductID: productID, Quantity: final, SelectedAt: s.now()})
	}

	res := s.resultLocked(productID, final, clamped)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventItemAdded, ProductID: productID, Quantity: final, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) RemoveItem(ctx context.Context, productID string) (*cart.OpResult, error) {
	s.mu.Lock()

	idx := s.indexOfLocked(productID)
	if idx >= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	delete(s.selections, productID)

	res := s.resultLocked(productID, 0, false)
	s.mu.Unlock()

	// Removing an absent line is a no-op success so caller retries stay safe.
	s.publish(cart.Event{Kind: cart.EventItemRemoved, ProductID: productID, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) SetQuantity(ctx context.Context, productID string, quantity int) (*cart.OpResult, error) {
	// A quantity of zero or below deletes the line, never stores zero.
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	limit, err := s.stockLimit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.indexOfLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("product %q is not in the cart", productID)
	}

	final := quantity
	clamped := false
	if final > limit {
		final = limit
		clamped = true
	}
	s.lines[idx].Quantity = final
	s.lines[idx].SelectedAt = s.now()

	res := s.resultLocked(productID, final, clamped)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventItemUpdated, ProductID: productID, Quantity: final, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) ToggleSelection(ctx context.Context, productID string) (*cart.OpResult, error) {
	s.mu.Lock()
	if s.indexOfLocked(productID) < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("product %q is not in the cart", productID)
	}
	selected := !s.selections[productID]
	s.selections[productID] = selected
	res := s.resultLocked(productID, 0, false)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventSelectionChanged, ProductID: productID, Selected: selected, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) SelectAll(ctx context.Context) (*cart.OpResult, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.lines))
	for _, l := range s.lines {
		s.selections[l.ProductID] = true
		ids = append(ids, l.ProductID)
	}
	res := s.resultLocked("", 0, false)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventBatchCompleted, ProductIDs: ids, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) ClearSelections(ctx context.Context) (*cart.OpResult, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.selections))
	for id := range s.selections {
		ids = append(ids, id)
	}
	s.selections = cart.SelectionSet{}
	res := s.resultLocked("", 0, false)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventBatchCompleted, ProductIDs: ids, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) SelectMany(ctx context.Context, productIDs []string) (*cart.OpResult, error) {
	s.mu.Lock()
	applied := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		// Selections only ever reference existing lines.
		if s.indexOfLocked(id) >= 0 {
			s.selections[id] = true
			applied = append(applied, id)
		}
	}
	res := s.resultLocked("", 0, false)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventBatchCompleted, ProductIDs: applied, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) Clear(ctx context.Context) (*cart.OpResult, error) {
	s.mu.Lock()
	s.lines = nil
	s.selections = cart.SelectionSet{}
	res := s.resultLocked("", 0, false)
	s.mu.Unlock()

	s.publish(cart.Event{Kind: cart.EventCartCleared, OccurredAt: s.now()})
	return res, nil
}

func (s *CartService) Items() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *CartService) Selections() cart.SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections.Clone()
}

func (s *CartService) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.TotalQuantity(s.lines)
}

// Replace swaps in state restored from storage. No mutation events: restores
// must not retrigger the persistence path they came from.
func (s *CartService) Replace(items []cart.Line, selections cart.SelectionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make([]cart.Line, len(items))
	copy(s.lines, items)
	s.selections = selections.Clone()
	s.selections.Prune(s.lines)
}

func (s *CartService) indexOfLocked(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *CartService) resultLocked(productID string, quantity int, clamped bool) *cart.OpResult {
	return &cart.OpResult{
		ProductID:     productID,
		Quantity:      quantity,
		Clamped:       clamped,
		TotalItems:    len(s.lines),
		TotalQuantity: cart.TotalQuantity(s.lines),
	}
}

func (s *CartService) publish(evt cart.Event) {
	if s.bus != nil {
		s.bus.Publish(evt)
	}
}

var _ ports.CartService = (*CartService)(nil)
