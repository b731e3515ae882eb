package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketmall/shopdata/internal/application/remotecache"
	"github.com/pocketmall/shopdata/internal/core/domain/account"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// AccountCacheConfig carries the per-resource TTLs and shared retry shape
// for the remote-derived account data.
type AccountCacheConfig struct {
	UserID     string
	ProfileTTL time.Duration
	MetricsTTL time.Duration
	OrdersTTL  time.Duration
	Retry      remotecache.RetryPolicy
}

// AccountService serves the user's profile, account metrics and order counts
// through cached remote resources. Reads never fail; the balance update is
// the one write path and always surfaces remote rejections.
type AccountService struct {
	gateway ports.AccountGateway
	userID  string
	logger  *logrus.Logger

	profile *remotecache.Resource[account.Profile]
	metrics *remotecache.Resource[account.Metrics]
	orders  *remotecache.Resource[account.OrderCounts]
}

func NewAccountService(gateway ports.AccountGateway, store ports.DeviceStore, cfg AccountCacheConfig, logger *logrus.Logger) *AccountService {
	s := &AccountService{gateway: gateway, userID: cfg.UserID, logger: logger}

	s.profile = remotecache.NewResource("user_profile", cfg.UserID, account.Profile{UserID: cfg.UserID},
		func(ctx context.Context) (account.Profile, error) {
			p, err := gateway.FetchProfile(ctx, cfg.UserID)
			if err != nil {
				return account.Profile{}, err
			}
			return *p, nil
		},
		remotecache.Options{TTL: cfg.ProfileTTL, Retry: cfg.Retry, Store: store, Logger: logger})

	s.metrics = remotecache.NewResource("account_metrics", cfg.UserID, account.Metrics{},
		func(ctx context.Context) (account.Metrics, error) {
			m, err := gateway.FetchMetrics(ctx, cfg.UserID)
			if err != nil {
				return account.Metrics{}, err
			}
			return *m, nil
		},
		remotecache.Options{TTL: cfg.MetricsTTL, Retry: cfg.Retry, Store: store, Logger: logger})

	s.orders = remotecache.NewResource("order_counts", cfg.UserID, account.OrderCounts{},
		func(ctx context.Context) (account.OrderCounts, error) {
			o, err := gateway.FetchOrderCounts(ctx, cfg.UserID)
			if err != nil {
				return account.OrderCounts{}, err
			}
			return *o, nil
		},
		remotecache.Options{TTL: cfg.OrdersTTL, Retry: cfg.Retry, Store: store, Logger: logger})

	return s
}

func (s *AccountService) GetProfile(ctx context.Context) account.Profile {
	return s.profile.Get(ctx)
}

func (s *AccountService) GetMetrics(ctx context.Context) account.Metrics {
	return s.metrics.Get(ctx)
}

func (s *AccountService) GetOrderCounts(ctx context.Context) account.OrderCounts {
	return s.orders.Get(ctx)
}

// UpdateBalance applies a balance delta remotely. No retry and no fallback:
// this is state the user explicitly requested, so a failure always reaches
// the caller, typed when the remote rejected the operation.
func (s *AccountService) UpdateBalance(ctx context.Context, delta int64) (*account.Metrics, error) {
	if delta == 0 {
		return nil, &account.RejectionError{Reason: account.RejectInvalidAmount, Message: "delta must be non-zero"}
	}

	m, err := s.gateway.UpdateBalance(ctx, s.userID, delta)
	if err != nil {
		if rej, ok := account.AsRejection(err); ok {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"reason": rej.Reason}).Warn("balance update rejected by remote")
			}
			return nil, rej
		}
		return nil, fmt.Errorf("balance update failed: %w", err)
	}

	// The write response is the freshest metrics we can have.
	s.metrics.Put(ctx, *m)
	return m, nil
}

var _ ports.AccountService = (*AccountService)(nil)
