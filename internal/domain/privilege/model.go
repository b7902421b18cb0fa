package privilege

import (
	"context"
	"time"

	"github.com/vitacare/vitacare/internal/types"
)

// UsageRecord tracks consumption of one plan privilege by one subscription
// within the current billing period. Created lazily on first consumption and
// reset to zero (not deleted) at each billing-cycle rollover. UsedValue never
// exceeds the plan allowance unless the allowance is unlimited.
type UsageRecord struct {
	// ID is the unique identifier for the usage record
	ID string `db:"id" json:"id"`

	// SubscriptionID is the subscription consuming the privilege
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// PrivilegeName is the plan privilege type name being tracked
	PrivilegeName string `db:"privilege_name" json:"privilege_name"`

	// UsedValue is the monotonic consumption counter within the period
	UsedValue int64 `db:"used_value" json:"used_value"`

	// UsagePeriodStart is the start of the current usage window
	UsagePeriodStart time.Time `db:"usage_period_start" json:"usage_period_start"`

	// UsagePeriodEnd is the end of the current usage window
	UsagePeriodEnd time.Time `db:"usage_period_end" json:"usage_period_end"`

	types.BaseModel
}

// NewUsageRecord builds a fresh usage record with a zero counter and the
// given period window.
func NewUsageRecord(ctx context.Context, subscriptionID, privilegeName string, periodStart, periodEnd time.Time) *UsageRecord {
	return &UsageRecord{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		SubscriptionID:   subscriptionID,
		PrivilegeName:    privilegeName,
		UsedValue:        0,
		UsagePeriodStart: periodStart,
		UsagePeriodEnd:   periodEnd,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
}
