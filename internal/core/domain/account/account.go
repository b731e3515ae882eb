package account

import (
	"errors"
	"fmt"
	"time"
)

// Profile is the remote-derived user profile.
type Profile struct {
	UserID    string    `json:"user_id"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatar_url"`
	Phone     string    `json:"phone"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Metrics holds the account's balance and reward figures. Balance is in
// cents. The zero value is the documented fallback when no cached copy exists
// and the remote is unreachable.
type Metrics struct {
	Balance int64 `json:"balance"`
	Points  int   `json:"points"`
	Coupons int   `json:"coupons"`
}

// OrderCounts mirrors the per-status order badges shown on the account page.
type OrderCounts struct {
	Unpaid    int `json:"unpaid"`
	Pending   int `json:"pending"`
	Shipped   int `json:"shipped"`
	Completed int `json:"completed"`
	Refunding int `json:"refunding"`
}

// RejectReason classifies a well-formed remote business rejection.
type RejectReason string

const (
	RejectInsufficientBalance RejectReason = "insufficient_balance"
	RejectInvalidAmount       RejectReason = "invalid_amount"
	RejectUnknown             RejectReason = "unknown"
)

// RejectionError is a remote response that signals business failure. It is
// never retried and always surfaced to the caller.
type RejectionError struct {
	Reason  RejectReason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("remote rejected operation (%s): %s", e.Reason, e.Message)
}

// AsRejection extracts a RejectionError from an error chain.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
