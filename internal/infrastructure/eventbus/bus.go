package eventbus

import (
	"sync"

	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type registration struct {
	id ports.Subscription
	fn ports.EventListener
}

// Bus is the in-process event register. Publish fans out synchronously to
// listeners in subscription order; a listener error or panic is logged and
// the remaining listeners still run.
type Bus struct {
	mu          sync.RWMutex
	initialized bool
	nextID      ports.Subscription
	listeners   map[cart.EventKind][]registration
	logger      *logrus.Logger
}

func New(logger *logrus.Logger) *Bus {
	return &Bus{logger: logger}
}

// Init prepares the listener table. Idempotent.
func (b *Bus) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return
	}
	b.listeners = make(map[cart.EventKind][]registration)
	b.initialized = true
}

func (b *Bus) Subscribe(kind cart.EventKind, fn ports.EventListener) ports.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		// Subscribe before Init is a wiring bug; initialize anyway so the
		// listener is not silently lost.
		b.listeners = make(map[cart.EventKind][]registration)
		b.initialized = true
		if b.logger != nil {
			b.logger.WithFields(logrus.Fields{"kind": kind}).Warn("event bus subscribed before Init")
		}
	}
	b.nextID++
	b.listeners[kind] = append(b.listeners[kind], registration{id: b.nextID, fn: fn})
	return b.nextID
}

func (b *Bus) Unsubscribe(kind cart.EventKind, sub ports.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.listeners[kind]
	for i, r := range regs {
		if r.id == sub {
			b.listeners[kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(evt cart.Event) {
	b.mu.RLock()
	regs := make([]registration, len(b.listeners[evt.Kind]))
	copy(regs, b.listeners[evt.Kind])
	b.mu.RUnlock()

	for _, r := range regs {
		b.dispatch(r, evt)
	}
}

func (b *Bus) dispatch(r registration, evt cart.Event) {
	defer func() {
		if rec := recover(); rec != nil && b.logger != nil {
			b.logger.WithFields(logrus.Fields{"kind": evt.Kind, "panic": rec}).Error("event listener panicked")
		}
	}()
	if err := r.fn(evt); err != nil && b.logger != nil {
		b.logger.WithFields(logrus.Fields{"kind": evt.Kind}).WithError(err).Warn("event listener failed")
	}
}

// Clear removes all listeners and resets initialization state. Test teardown
// only.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = nil
	b.initialized = false
	b.nextID = 0
}

var _ ports.EventBus = (*Bus)(nil)
