package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pocketmall/shopdata/internal/core/domain/account"
	"github.com/pocketmall/shopdata/internal/core/ports"
)

// AccountGateway talks to the remote account/order/user endpoints. Business
// rejections come back as *account.RejectionError; everything else is a
// plain error for the caching layer to classify.
type AccountGateway struct {
	client *Client
}

func NewAccountGateway(client *Client) *AccountGateway {
	return &AccountGateway{client: client}
}

func (g *AccountGateway) FetchProfile(ctx context.Context, userID string) (*account.Profile, error) {
	var p account.Profile
	status, remoteErr, err := g.client.do(ctx, http.MethodGet, "/api/users/"+userID+"/profile", nil, &p)
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, fmt.Errorf("profile fetch returned status %d: %s", status, remoteErr.Message)
	}
	return &p, nil
}

func (g *AccountGateway) FetchMetrics(ctx context.Context, userID string) (*account.Metrics, error) {
	var m account.Metrics
	status, remoteErr, err := g.client.do(ctx, http.MethodGet, "/api/users/"+userID+"/metrics", nil, &m)
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, fmt.Errorf("metrics fetch returned status %d: %s", status, remoteErr.Message)
	}
	return &m, nil
}

func (g *AccountGateway) FetchOrderCounts(ctx context.Context, userID string) (*account.OrderCounts, error) {
	var o account.OrderCounts
	status, remoteErr, err := g.client.do(ctx, http.MethodGet, "/api/users/"+userID+"/orders/counts", nil, &o)
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, fmt.Errorf("order counts fetch returned status %d: %s", status, remoteErr.Message)
	}
	return &o, nil
}

// UpdateBalance posts a balance delta. A well-formed non-2xx body is a
// business rejection and must surface typed, never as a retryable failure.
func (g *AccountGateway) UpdateBalance(ctx context.Context, userID string, delta int64) (*account.Metrics, error) {
	var m account.Metrics
	body := map[string]int64{"delta": delta}
	_, remoteErr, err := g.client.do(ctx, http.MethodPost, "/api/users/"+userID+"/balance", body, &m)
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, &account.RejectionError{
			Reason:  rejectReason(remoteErr.Reason),
			Message: remoteErr.Message,
		}
	}
	return &m, nil
}

func rejectReason(raw string) account.RejectReason {
	switch account.RejectReason(raw) {
	case account.RejectInsufficientBalance, account.RejectInvalidAmount:
		return account.RejectReason(raw)
	default:
		return account.RejectUnknown
	}
}

var _ ports.AccountGateway = (*AccountGateway)(nil)
