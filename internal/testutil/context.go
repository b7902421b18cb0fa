package testutil

import (
	"context"

	"github.com/vitacare/vitacare/internal/types"
)

// GetContext returns a context pre-populated with test tenant and user ids
func GetContext() context.Context {
	ctx := context.Background()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	return ctx
}
