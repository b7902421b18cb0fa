package proration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitacare/vitacare/internal/types"
)

// UpgradeParams holds all necessary input for calculating the proration of a
// mid-cycle plan upgrade.
type UpgradeParams struct {
	// SubscriptionID identifies the subscription being upgraded
	SubscriptionID string

	// OldPlanPrice is the per-cycle price already paid for the current period
	OldPlanPrice decimal.Decimal

	// NewPlanPrice is the per-cycle price of the target plan
	NewPlanPrice decimal.Decimal

	// NextBillingDate is the end of the already-paid period
	NextBillingDate time.Time

	// BillingCycle determines the nominal cycle length in days
	BillingCycle types.BillingCycle

	// ChangeDate is the effective date/time of the change
	ChangeDate time.Time
}

// Result holds the output of a proration calculation. The caller is
// responsible for executing the payment of Charge and, only on success,
// committing the plan change.
type Result struct {
	// Credit is the unused portion of the old plan price
	Credit decimal.Decimal `json:"credit"`

	// Charge is the amount to collect now: max(0, new price - credit)
	Charge decimal.Decimal `json:"charge"`

	// DaysRemaining is the number of whole days left in the paid period
	DaysRemaining int64 `json:"days_remaining"`

	// CycleLengthDays is the nominal cycle length used as the ratio base
	CycleLengthDays int64 `json:"cycle_length_days"`

	// ChangeDate is the effective date used for the calculation
	ChangeDate time.Time `json:"change_date"`
}
