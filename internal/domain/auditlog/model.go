package auditlog

import (
	"context"
	"time"

	"github.com/vitacare/vitacare/internal/types"
)

// Actions recorded against the audit sink.
const (
	ActionTransition     = "subscription.transition"
	ActionBulkTransition = "subscription.bulk_transition"
	ActionPlanChange     = "subscription.plan_change"
)

// EntityTypeSubscription is the entity type for all records this core emits.
const EntityTypeSubscription = "Subscription"

// Record is one audit entry emitted to the external audit log. The core does
// not perform authorization; Actor is caller-supplied attribution.
type Record struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
	TenantID   string    `json:"tenant_id"`
}

// NewRecord builds an audit record for a subscription-scoped action.
func NewRecord(ctx context.Context, actor, action, entityID, detail string, at time.Time) *Record {
	return &Record{
		ID:         types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_AUDIT_RECORD),
		Actor:      actor,
		Action:     action,
		EntityType: EntityTypeSubscription,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  at,
		TenantID:   types.GetTenantID(ctx),
	}
}
