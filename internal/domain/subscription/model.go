package subscription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitacare/vitacare/internal/types"
)

// Subscription is the central aggregate of the lifecycle core. Status may only
// be mutated through the lifecycle service; the status-specific date fields are
// historical artifacts of prior transitions and are never cleared except on
// reactivation.
type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// CustomerID is the identifier for the patient in our system
	CustomerID string `db:"customer_id" json:"customer_id"`

	// PlanID is the identifier for the plan in our system
	PlanID string `db:"plan_id" json:"plan_id"`

	// SubscriptionStatus is the business status of the subscription
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// Currency is the currency of the subscription in lowercase 3 digit ISO codes
	Currency string `db:"currency" json:"currency"`

	// CurrentPrice is the per-cycle price currently charged
	CurrentPrice decimal.Decimal `db:"current_price" json:"current_price"`

	// BillingCycle is the recurring period governing renewal
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	// StartDate is the start date of the subscription
	StartDate time.Time `db:"start_date" json:"start_date"`

	// NextBillingDate is when the next renewal invoice is due
	NextBillingDate time.Time `db:"next_billing_date" json:"next_billing_date"`

	// TrialStartDate is the start date of the trial period
	TrialStartDate *time.Time `db:"trial_start_date" json:"trial_start_date"`

	// TrialEndDate is the end date of the trial period
	TrialEndDate *time.Time `db:"trial_end_date" json:"trial_end_date"`

	// PausedDate is when the subscription was last paused
	PausedDate *time.Time `db:"paused_date" json:"paused_date"`

	// ResumedDate is when the subscription was last resumed from a pause
	ResumedDate *time.Time `db:"resumed_date" json:"resumed_date"`

	// CancelledDate is when the subscription was cancelled
	CancelledDate *time.Time `db:"cancelled_date" json:"cancelled_date"`

	// SuspendedDate is when the subscription was suspended after failed dunning
	SuspendedDate *time.Time `db:"suspended_date" json:"suspended_date"`

	// ExpirationDate is when the subscription expired
	ExpirationDate *time.Time `db:"expiration_date" json:"expiration_date"`

	// LastPaymentFailedDate is when the most recent renewal payment failed
	LastPaymentFailedDate *time.Time `db:"last_payment_failed_date" json:"last_payment_failed_date"`

	// CancellationReason is the reason supplied with the cancel request
	CancellationReason string `db:"cancellation_reason" json:"cancellation_reason"`

	// PauseReason is the reason supplied with the pause request
	PauseReason string `db:"pause_reason" json:"pause_reason"`

	// LastPaymentError is the gateway error of the most recent failed payment
	LastPaymentError string `db:"last_payment_error" json:"last_payment_error"`

	// FailedPaymentAttempts counts consecutive failed renewal payments
	FailedPaymentAttempts int `db:"failed_payment_attempts" json:"failed_payment_attempts"`

	// AutoRenew is whether the subscription renews at the end of each period
	AutoRenew bool `db:"auto_renew" json:"auto_renew"`

	// Version is the optimistic concurrency token checked on every update
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// NewParams carries the inputs for building a new subscription aggregate.
// The creation flow itself (payment setup, onboarding) lives outside this core.
type NewParams struct {
	CustomerID   string
	PlanID       string
	Currency     string
	Price        decimal.Decimal
	BillingCycle types.BillingCycle
	TrialDays    int
	AutoRenew    bool
	Now          time.Time
}

// New builds a subscription aggregate in its entry status: TrialActive when
// the plan grants trial days, Pending otherwise.
func New(ctx context.Context, params NewParams) *Subscription {
	sub := &Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:         params.CustomerID,
		PlanID:             params.PlanID,
		SubscriptionStatus: types.SubscriptionStatusPending,
		Currency:           params.Currency,
		CurrentPrice:       params.Price,
		BillingCycle:       params.BillingCycle,
		StartDate:          params.Now,
		NextBillingDate:    types.NextBillingDate(params.Now, params.BillingCycle),
		AutoRenew:          params.AutoRenew,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if params.TrialDays > 0 {
		trialEnd := params.Now.AddDate(0, 0, params.TrialDays)
		sub.SubscriptionStatus = types.SubscriptionStatusTrialActive
		sub.TrialStartDate = &params.Now
		sub.TrialEndDate = &trialEnd
	}

	return sub
}

// Clone returns a deep copy so a rejected transition leaves the loaded
// aggregate untouched.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	clone := *s
	clone.TrialStartDate = copyTime(s.TrialStartDate)
	clone.TrialEndDate = copyTime(s.TrialEndDate)
	clone.PausedDate = copyTime(s.PausedDate)
	clone.ResumedDate = copyTime(s.ResumedDate)
	clone.CancelledDate = copyTime(s.CancelledDate)
	clone.SuspendedDate = copyTime(s.SuspendedDate)
	clone.ExpirationDate = copyTime(s.ExpirationDate)
	clone.LastPaymentFailedDate = copyTime(s.LastPaymentFailedDate)
	return &clone
}

// ShouldSuspend reports whether the dunning cap has been reached and the
// caller should request a PaymentFailed -> Suspended transition.
func (s *Subscription) ShouldSuspend(maxFailedAttempts int) bool {
	return s.SubscriptionStatus == types.SubscriptionStatusPaymentFailed &&
		s.FailedPaymentAttempts >= maxFailedAttempts
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
