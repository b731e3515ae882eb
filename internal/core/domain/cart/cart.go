package cart

import (
	"time"
)

// MaxQuantity is the upper bound for a single line's quantity. Adding past it
// clamps rather than fails; the operation result reports the clamp.
const MaxQuantity = 999

// Line is a single cart entry. A quantity update to zero or below deletes the
// line; zero quantities are never stored.
type Line struct {
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	SelectedAt time.Time `json:"selected_at"`
}

// SelectionSet maps product IDs to their checkout-selection flag. Every key
// must correspond to an existing Line; orphans are dropped during validation.
type SelectionSet map[string]bool

// Clone returns an independent copy of the set.
func (s SelectionSet) Clone() SelectionSet {
	if s == nil {
		return SelectionSet{}
	}
	out := make(SelectionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Prune removes entries that have no matching line and reports how many were
// dropped.
func (s SelectionSet) Prune(lines []Line) int {
	present := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		present[l.ProductID] = struct{}{}
	}
	dropped := 0
	for id := range s {
		if _, ok := present[id]; !ok {
			delete(s, id)
			dropped++
		}
	}
	return dropped
}

// TotalQuantity sums the quantities of all lines.
func TotalQuantity(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// OpResult describes the outcome of a cart mutation.
type OpResult struct {
	ProductID     string `json:"product_id,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	Clamped       bool   `json:"clamped,omitempty"`
	TotalItems    int    `json:"total_items"`
	TotalQuantity int    `json:"total_quantity"`
}
