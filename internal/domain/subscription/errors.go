package subscription

import (
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// NewNotFoundError creates a not found error with the subscription id attached
func NewNotFoundError(id string) error {
	return ierr.NewError("subscription not found").
		WithHint("Subscription not found").
		WithReportableDetails(map[string]any{
			"subscription_id": id,
		}).
		Mark(ierr.ErrNotFound)
}

// NewVersionConflictError creates a version conflict error for a stale write
func NewVersionConflictError(id string, expected, actual int) error {
	return ierr.NewError("subscription version conflict").
		WithHint("Subscription was modified concurrently, retry the operation").
		WithReportableDetails(map[string]any{
			"subscription_id":  id,
			"expected_version": expected,
			"actual_version":   actual,
		}).
		Mark(ierr.ErrVersionConflict)
}

// NewInvalidTransitionError creates an invalid transition error for a
// (current, target) pair that is not an edge of the transition graph
func NewInvalidTransitionError(id string, current, target types.SubscriptionStatus) error {
	return ierr.NewError("invalid subscription status transition").
		WithHintf("Cannot transition subscription from %s to %s", current, target).
		WithReportableDetails(map[string]any{
			"subscription_id":  id,
			"current_status":   current,
			"target_status":    target,
			"allowed_statuses": current.NextStatuses(),
		}).
		Mark(ierr.ErrInvalidTransition)
}
