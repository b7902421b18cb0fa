package types

import (
	"github.com/samber/lo"

	ierr "github.com/vitacare/vitacare/internal/errors"
)

// BillingCycle is the recurring period governing renewal and usage-reset cadence.
type BillingCycle string

const (
	BILLING_CYCLE_DAILY     BillingCycle = "DAILY"
	BILLING_CYCLE_WEEKLY    BillingCycle = "WEEKLY"
	BILLING_CYCLE_MONTHLY   BillingCycle = "MONTHLY"
	BILLING_CYCLE_QUARTERLY BillingCycle = "QUARTERLY"
	BILLING_CYCLE_ANNUAL    BillingCycle = "ANNUAL"
)

var BillingCycleValues = []BillingCycle{
	BILLING_CYCLE_DAILY,
	BILLING_CYCLE_WEEKLY,
	BILLING_CYCLE_MONTHLY,
	BILLING_CYCLE_QUARTERLY,
	BILLING_CYCLE_ANNUAL,
}

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) Validate() error {
	if !lo.Contains(BillingCycleValues, c) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Invalid billing cycle").
			WithReportableDetails(map[string]any{
				"billing_cycle":  c,
				"allowed_values": BillingCycleValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NominalDays returns the nominal length of the cycle in days, used as the
// denominator for proration. Calendar-exact advancement is done by
// NextBillingDate; this is only the flat ratio base.
func (c BillingCycle) NominalDays() int64 {
	switch c {
	case BILLING_CYCLE_DAILY:
		return 1
	case BILLING_CYCLE_WEEKLY:
		return 7
	case BILLING_CYCLE_QUARTERLY:
		return 90
	case BILLING_CYCLE_ANNUAL:
		return 365
	default:
		return 30
	}
}
