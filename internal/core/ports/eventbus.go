package ports

import "github.com/pocketmall/shopdata/internal/core/domain/cart"

// EventListener consumes a cart mutation event. A returned error is logged by
// the bus and never interrupts remaining listeners or the publisher.
type EventListener func(evt cart.Event) error

// Subscription identifies a registered listener so it can be removed later.
type Subscription uint64

// EventBus is the in-process publish/subscribe register for cart mutations.
// Fan-out is synchronous and runs listeners in subscription order. No
// ordering is guaranteed across different event kinds.
type EventBus interface {
	// Init prepares the bus for use; calling it again is a no-op.
	Init()
	Subscribe(kind cart.EventKind, fn EventListener) Subscription
	Unsubscribe(kind cart.EventKind, sub Subscription)
	Publish(evt cart.Event)
	// Clear removes all listeners and resets initialization state. Intended
	// for test teardown, not production use.
	Clear()
}

// NotificationSink receives cart events destined for user-facing surfaces
// (badges, toasts). It lives outside the core and is injected where needed.
type NotificationSink interface {
	Notify(evt cart.Event)
}
