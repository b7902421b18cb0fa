package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vitacare/vitacare/internal/domain/auditlog"
	"github.com/vitacare/vitacare/internal/domain/proration"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// PlanChangeService handles mid-cycle plan switches. The core never charges a
// card: PreviewUpgrade computes the prorated amount, the caller executes the
// payment externally, and only on success calls ApplyPlanChange.
type PlanChangeService interface {
	// PreviewUpgrade computes the prorated charge for switching to the new
	// plan now, without mutating anything.
	PreviewUpgrade(ctx context.Context, subscriptionID, newPlanID string) (*proration.Result, error)

	// ApplyPlanChange commits the plan switch: swaps plan and price, starts a
	// new billing period from now, and re-anchors privilege usage windows.
	ApplyPlanChange(ctx context.Context, subscriptionID, newPlanID, actor string) (*subscription.Subscription, error)
}

type planChangeService struct {
	ServiceParams
}

func NewPlanChangeService(params ServiceParams) PlanChangeService {
	return &planChangeService{
		ServiceParams: params,
	}
}

func (s *planChangeService) PreviewUpgrade(ctx context.Context, subscriptionID, newPlanID string) (*proration.Result, error) {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.validateChangeable(sub, newPlanID); err != nil {
		return nil, err
	}

	newPlan, err := s.PlanRepo.Get(ctx, newPlanID)
	if err != nil {
		return nil, err
	}

	return s.ProrationCalculator.ComputeUpgradeCharge(ctx, proration.UpgradeParams{
		SubscriptionID:  sub.ID,
		OldPlanPrice:    sub.CurrentPrice,
		NewPlanPrice:    newPlan.Price,
		NextBillingDate: sub.NextBillingDate,
		BillingCycle:    sub.BillingCycle,
		ChangeDate:      s.Clock.Now(),
	})
}

func (s *planChangeService) ApplyPlanChange(ctx context.Context, subscriptionID, newPlanID, actor string) (*subscription.Subscription, error) {
	unlock := s.Locks.Lock(subscriptionID)
	defer unlock()

	var result *subscription.Subscription
	operation := func() error {
		sub, err := s.attemptPlanChange(ctx, subscriptionID, newPlanID, actor)
		if err != nil {
			if ierr.IsVersionConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = sub
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.Config.Billing.ConflictRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *planChangeService) attemptPlanChange(ctx context.Context, subscriptionID, newPlanID, actor string) (*subscription.Subscription, error) {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.validateChangeable(sub, newPlanID); err != nil {
		return nil, err
	}

	newPlan, err := s.PlanRepo.Get(ctx, newPlanID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	oldPlanID := sub.PlanID

	updated := sub.Clone()
	updated.PlanID = newPlan.ID
	updated.CurrentPrice = newPlan.Price
	updated.BillingCycle = newPlan.BillingCycle
	// The caller collected the prorated charge up front, so the new period
	// is anchored at the change date.
	updated.NextBillingDate = types.NextBillingDate(now, newPlan.BillingCycle)
	updated.UpdatedAt = now
	updated.UpdatedBy = types.GetUserID(ctx)

	if err := s.SubRepo.Update(ctx, updated); err != nil {
		return nil, err
	}

	if err := s.resetUsageWindows(ctx, updated.ID, updated.BillingCycle, now); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription plan changed",
		"subscription_id", sub.ID,
		"old_plan_id", oldPlanID,
		"new_plan_id", newPlan.ID,
		"actor", actor,
	)

	s.writeAudit(ctx, updated, oldPlanID, newPlanID, actor)
	return updated, nil
}

func (s *planChangeService) validateChangeable(sub *subscription.Subscription, newPlanID string) error {
	if newPlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("Please provide a target plan ID").
			Mark(ierr.ErrValidation)
	}
	if sub.PlanID == newPlanID {
		return ierr.NewError("subscription already on requested plan").
			WithHint("The subscription is already on the requested plan").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"plan_id":         newPlanID,
			}).
			Mark(ierr.ErrValidation)
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return ierr.NewError("subscription is not active").
			WithHint("Only active subscriptions can change plans").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidTransition)
	}
	return nil
}

// resetUsageWindows re-anchors every usage record to the new billing period.
// The new plan's allowances start fresh from the change date.
func (s *planChangeService) resetUsageWindows(ctx context.Context, subscriptionID string, cycle types.BillingCycle, now time.Time) error {
	records, err := s.UsageRepo.ListRecords(ctx, subscriptionID)
	if err != nil {
		return err
	}
	for _, record := range records {
		record.UsedValue = 0
		record.UsagePeriodStart = now
		record.UsagePeriodEnd = types.NextBillingDate(now, cycle)
		record.UpdatedAt = now
		record.UpdatedBy = types.GetUserID(ctx)
		if err := s.UsageRepo.Upsert(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *planChangeService) writeAudit(ctx context.Context, sub *subscription.Subscription, oldPlanID, newPlanID, actor string) {
	if s.AuditSink == nil {
		return
	}
	if actor == "" {
		actor = SystemActor
	}
	detail := fmt.Sprintf("plan %s -> %s", oldPlanID, newPlanID)
	record := auditlog.NewRecord(ctx, actor, auditlog.ActionPlanChange, sub.ID, detail, s.Clock.Now())
	if err := s.AuditSink.Write(ctx, record); err != nil {
		s.Logger.Errorw("failed to write audit record",
			"error", err,
			"subscription_id", sub.ID,
			"action", record.Action,
		)
	}
}
