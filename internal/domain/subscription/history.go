package subscription

import (
	"context"
	"time"

	"github.com/vitacare/vitacare/internal/types"
)

// StatusHistory is one immutable row per status transition. Rows are created
// only by the lifecycle service, append-only, never updated or deleted.
type StatusHistory struct {
	// ID is the unique identifier for the history row
	ID string `db:"id" json:"id"`

	// SubscriptionID is the subscription the transition belongs to
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// FromStatus is nil only for the initial creation entry
	FromStatus *types.SubscriptionStatus `db:"from_status" json:"from_status"`

	// ToStatus is the status entered by the transition
	ToStatus types.SubscriptionStatus `db:"to_status" json:"to_status"`

	// Reason is why the transition happened
	Reason string `db:"reason" json:"reason"`

	// ChangedBy is the actor identity; nil implies the system scheduler
	ChangedBy *string `db:"changed_by" json:"changed_by"`

	// ChangedAt is when the transition was committed
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`

	types.BaseModel
}

// NewStatusHistory builds a history row for a committed transition.
func NewStatusHistory(ctx context.Context, subscriptionID string, from *types.SubscriptionStatus, to types.SubscriptionStatus, reason string, changedBy *string, changedAt time.Time) *StatusHistory {
	return &StatusHistory{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_HISTORY),
		SubscriptionID: subscriptionID,
		FromStatus:     from,
		ToStatus:       to,
		Reason:         reason,
		ChangedBy:      changedBy,
		ChangedAt:      changedAt,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}
