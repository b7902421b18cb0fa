package service

import (
	"context"

	"github.com/vitacare/vitacare/internal/cache"
	"github.com/vitacare/vitacare/internal/domain/plan"
	"github.com/vitacare/vitacare/internal/domain/privilege"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// PrivilegeService tracks per-subscription usage of plan privileges against
// their allowances. Consumption is check-then-increment under the same
// per-subscription lock used by the lifecycle service, so two simultaneous
// bookings cannot push usage past the allowance.
type PrivilegeService interface {
	// CanConsume reports whether one more unit of the privilege may be
	// consumed. An absent privilege means not granted, never an error.
	CanConsume(ctx context.Context, subscriptionID, privilegeName string) (bool, error)

	// Consume re-validates and increments the usage counter by exactly 1,
	// creating the usage record with a fresh period window on first use.
	Consume(ctx context.Context, subscriptionID, privilegeName string) (*privilege.UsageRecord, error)

	// ResetPeriod zeroes every usage counter and rolls the period window
	// forward by one billing cycle where the boundary has been crossed.
	// Invoked by the billing-cycle scheduler at each renewal.
	ResetPeriod(ctx context.Context, subscriptionID string) error
}

type privilegeService struct {
	ServiceParams
}

func NewPrivilegeService(params ServiceParams) PrivilegeService {
	return &privilegeService{
		ServiceParams: params,
	}
}

func (s *privilegeService) CanConsume(ctx context.Context, subscriptionID, privilegeName string) (bool, error) {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return false, err
	}

	granted, err := s.findPrivilege(ctx, sub.PlanID, privilegeName)
	if err != nil {
		return false, err
	}
	if granted == nil {
		return false, nil
	}
	if granted.IsUnlimited() {
		return true, nil
	}

	used, err := s.currentUsage(ctx, subscriptionID, privilegeName)
	if err != nil {
		return false, err
	}
	return used < granted.Value, nil
}

func (s *privilegeService) Consume(ctx context.Context, subscriptionID, privilegeName string) (*privilege.UsageRecord, error) {
	unlock := s.Locks.Lock(subscriptionID)
	defer unlock()

	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	granted, err := s.findPrivilege(ctx, sub.PlanID, privilegeName)
	if err != nil {
		return nil, err
	}
	if granted == nil {
		return nil, ierr.NewError("privilege not granted by plan").
			WithHintf("The current plan does not include %s", privilegeName).
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
				"plan_id":         sub.PlanID,
				"privilege_name":  privilegeName,
			}).
			Mark(ierr.ErrPrivilegeNotGranted)
	}

	record, err := s.getOrCreateRecord(ctx, sub, privilegeName)
	if err != nil {
		return nil, err
	}

	// Re-validate under the lock before incrementing: the counter must never
	// pass the allowance for a finite allowance.
	if !granted.IsUnlimited() && record.UsedValue >= granted.Value {
		return nil, ierr.NewError("privilege quota exceeded").
			WithHintf("The %s allowance for this billing period is exhausted", privilegeName).
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
				"privilege_name":  privilegeName,
				"used_value":      record.UsedValue,
				"allowance":       granted.Value,
			}).
			Mark(ierr.ErrQuotaExceeded)
	}

	record.UsedValue++
	record.UpdatedAt = s.Clock.Now()
	record.UpdatedBy = types.GetUserID(ctx)
	if err := s.UsageRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.Logger.Debugw("privilege consumed",
		"subscription_id", subscriptionID,
		"privilege_name", privilegeName,
		"used_value", record.UsedValue,
		"allowance", granted.Value,
	)
	return record, nil
}

func (s *privilegeService) ResetPeriod(ctx context.Context, subscriptionID string) error {
	unlock := s.Locks.Lock(subscriptionID)
	defer unlock()

	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	records, err := s.UsageRepo.ListRecords(ctx, subscriptionID)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	for _, record := range records {
		record.UsedValue = 0
		// The window only advances once per actual boundary crossed, so an
		// accidental double invocation at rollover is a no-op for the window.
		if !now.Before(record.UsagePeriodEnd) {
			record.UsagePeriodStart = record.UsagePeriodEnd
			record.UsagePeriodEnd = types.NextBillingDate(record.UsagePeriodEnd, sub.BillingCycle)
		}
		record.UpdatedAt = now
		record.UpdatedBy = types.GetUserID(ctx)
		if err := s.UsageRepo.Upsert(ctx, record); err != nil {
			return err
		}
	}

	s.Logger.Infow("privilege usage reset",
		"subscription_id", subscriptionID,
		"records", len(records),
	)
	return nil
}

// findPrivilege resolves the named privilege from the plan catalog, reading
// through the cache. Returns nil when the plan does not grant it.
func (s *privilegeService) findPrivilege(ctx context.Context, planID, privilegeName string) (*plan.Privilege, error) {
	privileges, err := s.getPlanPrivileges(ctx, planID)
	if err != nil {
		return nil, err
	}
	for _, p := range privileges {
		if p.Name == privilegeName {
			return p, nil
		}
	}
	return nil, nil
}

func (s *privilegeService) getPlanPrivileges(ctx context.Context, planID string) ([]*plan.Privilege, error) {
	key := cache.GenerateKey(cache.PrefixPlanPrivileges, planID)
	if s.Cache != nil {
		if cached, found := s.Cache.Get(ctx, key); found {
			if privileges, ok := cached.([]*plan.Privilege); ok {
				return privileges, nil
			}
		}
	}

	privileges, err := s.PlanRepo.GetPrivileges(ctx, planID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, key, privileges, 0)
	}
	return privileges, nil
}

func (s *privilegeService) currentUsage(ctx context.Context, subscriptionID, privilegeName string) (int64, error) {
	record, err := s.UsageRepo.GetRecord(ctx, subscriptionID, privilegeName)
	if err != nil {
		if ierr.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return record.UsedValue, nil
}

// getOrCreateRecord returns the existing usage record or lazily creates one
// with a fresh period window aligned to the subscription's billing cycle.
func (s *privilegeService) getOrCreateRecord(ctx context.Context, sub *subscription.Subscription, privilegeName string) (*privilege.UsageRecord, error) {
	record, err := s.UsageRepo.GetRecord(ctx, sub.ID, privilegeName)
	if err == nil {
		return record, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	now := s.Clock.Now()
	return privilege.NewUsageRecord(ctx, sub.ID, privilegeName, now, types.NextBillingDate(now, sub.BillingCycle)), nil
}
