package types

import (
	"github.com/samber/lo"

	ierr "github.com/vitacare/vitacare/internal/errors"
)

// SubscriptionStatus is the business status of a subscription.
// The set of values is closed: a status can only ever be reached through a
// legal edge of the transition graph below, enforced by the lifecycle service.
type SubscriptionStatus string

const (
	SubscriptionStatusPending       SubscriptionStatus = "pending"
	SubscriptionStatusTrialActive   SubscriptionStatus = "trial_active"
	SubscriptionStatusTrialExpired  SubscriptionStatus = "trial_expired"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPaused        SubscriptionStatus = "paused"
	SubscriptionStatusSuspended     SubscriptionStatus = "suspended"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
)

var SubscriptionStatusValues = []SubscriptionStatus{
	SubscriptionStatusPending,
	SubscriptionStatusTrialActive,
	SubscriptionStatusTrialExpired,
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusSuspended,
	SubscriptionStatusPaymentFailed,
	SubscriptionStatusCancelled,
	SubscriptionStatusExpired,
}

// subscriptionStatusTransitions is the fixed transition graph.
// Cancelled is terminal. Expired -> Active is the only sanctioned
// reactivation path; reactivation from Cancelled is never permitted.
var subscriptionStatusTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusPending: {
		SubscriptionStatusActive,
		SubscriptionStatusTrialActive,
		SubscriptionStatusCancelled,
	},
	SubscriptionStatusActive: {
		SubscriptionStatusPaused,
		SubscriptionStatusCancelled,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPaused: {
		SubscriptionStatusActive,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPaymentFailed: {
		SubscriptionStatusActive,
		SubscriptionStatusCancelled,
		SubscriptionStatusSuspended,
	},
	SubscriptionStatusSuspended: {
		SubscriptionStatusActive,
		SubscriptionStatusCancelled,
	},
	SubscriptionStatusTrialActive: {
		SubscriptionStatusActive,
		SubscriptionStatusTrialExpired,
		SubscriptionStatusCancelled,
	},
	SubscriptionStatusTrialExpired: {
		SubscriptionStatusActive,
		SubscriptionStatusCancelled,
	},
	SubscriptionStatusExpired: {
		SubscriptionStatusActive,
	},
	SubscriptionStatusCancelled: {},
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	if !lo.Contains(SubscriptionStatusValues, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": SubscriptionStatusValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NextStatuses returns the set of statuses directly reachable from s.
func (s SubscriptionStatus) NextStatuses() []SubscriptionStatus {
	return subscriptionStatusTransitions[s]
}

// CanTransitionTo reports whether target is a direct successor of s.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	return lo.Contains(subscriptionStatusTransitions[s], target)
}

// IsTerminal reports whether the status has no outbound edges.
func (s SubscriptionStatus) IsTerminal() bool {
	return len(subscriptionStatusTransitions[s]) == 0
}

// Transition reasons stamped on history rows written by the schedulers,
// so scheduler-driven rows stay greppable next to user-supplied reasons.
const (
	TransitionReasonTrialEnded      = "trial period ended"
	TransitionReasonPeriodExpired   = "billing period ended without renewal"
	TransitionReasonPaymentRecovery = "payment recovered"
	TransitionReasonPlanChange      = "plan change"
)
