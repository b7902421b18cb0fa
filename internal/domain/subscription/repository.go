package subscription

import (
	"context"

	"github.com/vitacare/vitacare/internal/types"
)

// Repository provides access to the subscription store. Update is expected to
// check the aggregate's Version against the stored row and fail with a
// version-conflict error on a stale write; together with the per-subscription
// lock this gives the read-validate-write sequence its atomicity.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	ListByStatus(ctx context.Context, status types.SubscriptionStatus) ([]*Subscription, error)

	// AppendStatusHistory appends one immutable history row
	AppendStatusHistory(ctx context.Context, entry *StatusHistory) error
	// ListStatusHistory returns history rows ordered by ChangedAt ascending
	ListStatusHistory(ctx context.Context, subscriptionID string) ([]*StatusHistory, error)
}
