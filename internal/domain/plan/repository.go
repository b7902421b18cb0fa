package plan

import (
	"context"

	"github.com/vitacare/vitacare/internal/types"
)

// Repository is the plan catalog contract consumed by the lifecycle core.
type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetPrivileges(ctx context.Context, planID string) ([]*Privilege, error)
	GetBillingCycle(ctx context.Context, planID string) (types.BillingCycle, error)
}
