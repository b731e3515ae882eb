package ports

import (
	"context"

	"github.com/pocketmall/shopdata/internal/core/domain/account"
)

// AccountGateway is the remote endpoint contract for user/account/order
// reads and the balance write path. Fetch errors are classified by the
// caching layer; UpdateBalance business failures must come back as
// *account.RejectionError.
type AccountGateway interface {
	FetchProfile(ctx context.Context, userID string) (*account.Profile, error)
	FetchMetrics(ctx context.Context, userID string) (*account.Metrics, error)
	FetchOrderCounts(ctx context.Context, userID string) (*account.OrderCounts, error)
	UpdateBalance(ctx context.Context, userID string, delta int64) (*account.Metrics, error)
}
