package notify

import (
	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// LogSink is the default NotificationSink: it logs every cart event where a
// UI would raise a badge or toast. Real UI surfaces replace it at wiring
// time.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(evt cart.Event) {
	if s.logger == nil {
		return
	}
	fields := logrus.Fields{"kind": evt.Kind}
	if evt.ProductID != "" {
		fields["product_id"] = evt.ProductID
	}
	if evt.Quantity > 0 {
		fields["quantity"] = evt.Quantity
	}
	if len(evt.ProductIDs) > 0 {
		fields["count"] = len(evt.ProductIDs)
	}
	s.logger.WithFields(fields).Info("cart notification")
}

// Subscribe registers the sink for every cart event kind on the bus.
func (s *LogSink) Subscribe(bus ports.EventBus) {
	kinds := []cart.EventKind{
		cart.EventItemAdded,
		cart.EventItemRemoved,
		cart.EventItemUpdated,
		cart.EventSelectionChanged,
		cart.EventBatchCompleted,
		cart.EventCartCleared,
	}
	for _, k := range kinds {
		bus.Subscribe(k, func(evt cart.Event) error {
			s.Notify(evt)
			return nil
		})
	}
}

var _ ports.NotificationSink = (*LogSink)(nil)
