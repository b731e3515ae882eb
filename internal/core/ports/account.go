package ports

import (
	"context"

	"github.com/pocketmall/shopdata/internal/core/domain/account"
)

// AccountService exposes the cached remote-derived account data. Read paths
// never fail: they fall back to the stale cache or the documented default.
// UpdateBalance is the write path and always surfaces remote rejections.
type AccountService interface {
	GetProfile(ctx context.Context) account.Profile
	GetMetrics(ctx context.Context) account.Metrics
	GetOrderCounts(ctx context.Context) account.OrderCounts
	UpdateBalance(ctx context.Context, delta int64) (*account.Metrics, error)
}
