package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const checkoutSessionPrefix = "checkout_session_"

// checkoutSession is the transient entry left behind by an abandoned
// checkout flow. The flow itself is a collaborator; the sweep only purges
// what it leaves expired.
type checkoutSession struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// MaintenanceService runs the periodic device-store sweep and the
// on-demand trigger fired when the app regains focus. Every step is
// individually recovered: one failing step never aborts the rest.
type MaintenanceService struct {
	store     ports.DeviceStore
	syncSvc   ports.SyncService
	cartSvc   ports.CartService
	interval  time.Duration
	retention int
	logger    *logrus.Logger
	now       func() time.Time
}

func NewMaintenanceService(store ports.DeviceStore, syncSvc ports.SyncService, cartSvc ports.CartService, interval time.Duration, retention int, logger *logrus.Logger) *MaintenanceService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 5
	}
	return &MaintenanceService{
		store:     store,
		syncSvc:   syncSvc,
		cartSvc:   cartSvc,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *MaintenanceService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one full maintenance pass: structural validation, expiry/stock
// revalidation, backup pruning and stale checkout session purge.
func (s *MaintenanceService) Sweep(ctx context.Context) {
	sweepRuns.Inc()
	if s.logger != nil {
		s.logger.Debug("maintenance sweep started")
	}

	s.step("validate_stored_data", func() error {
		if !s.syncSvc.ValidateStoredData(ctx) && s.logger != nil {
			s.logger.Warn("stored cart data failed structural validation")
		}
		return nil
	})

	s.step("revalidate_snapshot", func() error {
		res, err := s.syncSvc.SyncFromStorage(ctx)
		if err != nil {
			return err
		}
		if res.IsExpired && s.cartSvc != nil {
			s.cartSvc.Replace(res.Items, res.Selections)
		}
		return nil
	})

	s.step("prune_backups", func() error {
		return s.syncSvc.PruneBackups(ctx, s.retention)
	})

	s.step("purge_checkout_sessions", func() error {
		return s.purgeExpiredSessions(ctx)
	})
}

// step runs one sweep stage, recovering panics and logging failures.
func (s *MaintenanceService) step(name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"step": name, "panic": rec}).Error("maintenance step panicked")
		}
	}()
	if err := fn(); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"step": name}).WithError(err).Error("maintenance step failed")
	}
}

func (s *MaintenanceService) purgeExpiredSessions(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, checkoutSessionPrefix)
	if err != nil {
		return err
	}
	now := s.now()
	for _, k := range keys {
		b, ok, err := s.store.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		var sess checkoutSession
		// Unparsable sessions are purged too: they can never complete.
		if json.Unmarshal(b, &sess) == nil && sess.ExpiresAt.After(now) {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": k}).WithError(err).Warn("failed to purge checkout session")
		}
	}
	return nil
}

var _ ports.MaintenanceService = (*MaintenanceService)(nil)
