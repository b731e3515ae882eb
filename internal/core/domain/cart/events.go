package cart

import "time"

type EventKind string

const (
	EventItemAdded        EventKind = "item_added"
	EventItemRemoved      EventKind = "item_removed"
	EventItemUpdated      EventKind = "item_updated"
	EventSelectionChanged EventKind = "selection_changed"
	EventBatchCompleted   EventKind = "batch_operation_completed"
	EventCartCleared      EventKind = "cart_cleared"
)

// Event is the payload published on every successful cart mutation. Fields
// outside Kind and OccurredAt are populated depending on the mutation:
// single-line mutations set ProductID/Quantity, bulk selection operations set
// ProductIDs.
type Event struct {
	Kind       EventKind `json:"kind"`
	ProductID  string    `json:"product_id,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Selected   bool      `json:"selected,omitempty"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
