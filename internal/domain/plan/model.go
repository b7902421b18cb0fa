package plan

import (
	"github.com/shopspring/decimal"

	"github.com/vitacare/vitacare/internal/types"
)

// Plan is a billing plan from the catalog. The catalog is owned by an
// external system; this core only reads it.
type Plan struct {
	// ID is the unique identifier for the plan
	ID string `db:"id" json:"id"`

	// Name is the display name of the plan
	Name string `db:"name" json:"name"`

	// Description is the description of the plan
	Description string `db:"description" json:"description"`

	// Price is the per-cycle price of the plan
	Price decimal.Decimal `db:"price" json:"price"`

	// Currency is the currency of the plan in lowercase 3 digit ISO codes
	Currency string `db:"currency" json:"currency"`

	// BillingCycle is the recurring period of the plan
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	// TrialDays is the number of trial days granted on signup, 0 for none
	TrialDays int `db:"trial_days" json:"trial_days"`

	types.BaseModel
}
