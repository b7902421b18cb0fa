package proration

import (
	"context"

	"github.com/shopspring/decimal"

	ierr "github.com/vitacare/vitacare/internal/errors"
)

// Calculator computes the credit/charge for a mid-cycle plan change. It is a
// pure function of its params: no side effects, no payment execution.
type Calculator interface {
	ComputeUpgradeCharge(ctx context.Context, params UpgradeParams) (*Result, error)
}

// NewCalculator creates the default day-based proration calculator.
func NewCalculator() Calculator {
	return &dayBasedCalculator{}
}

// dayBasedCalculator prorates on whole remaining days against the nominal
// cycle length.
type dayBasedCalculator struct{}

func (c *dayBasedCalculator) ComputeUpgradeCharge(ctx context.Context, params UpgradeParams) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	cycleDays := params.BillingCycle.NominalDays()

	// Whole days between the change date and the end of the paid period.
	// A change after the period end earns no proration benefit.
	daysRemaining := int64(params.NextBillingDate.Sub(params.ChangeDate).Hours() / 24)
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > cycleDays {
		daysRemaining = cycleDays
	}

	credit := decimal.Zero
	if daysRemaining > 0 {
		credit = params.OldPlanPrice.
			Mul(decimal.NewFromInt(daysRemaining)).
			Div(decimal.NewFromInt(cycleDays))
	}

	charge := params.NewPlanPrice.Sub(credit)
	if charge.IsNegative() {
		// Downgrade-equivalent: no payment required, the switch still proceeds
		charge = decimal.Zero
	}

	return &Result{
		Credit:          credit,
		Charge:          charge,
		DaysRemaining:   daysRemaining,
		CycleLengthDays: cycleDays,
		ChangeDate:      params.ChangeDate,
	}, nil
}

func validateParams(params UpgradeParams) error {
	if params.OldPlanPrice.IsNegative() || params.NewPlanPrice.IsNegative() {
		return ierr.NewError("plan prices must be non-negative").
			WithHint("Plan prices must be non-negative").
			WithReportableDetails(map[string]any{
				"old_plan_price": params.OldPlanPrice,
				"new_plan_price": params.NewPlanPrice,
			}).
			Mark(ierr.ErrValidation)
	}
	if params.ChangeDate.IsZero() || params.NextBillingDate.IsZero() {
		return ierr.NewError("change date and next billing date are required").
			WithHint("Change date and next billing date are required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
