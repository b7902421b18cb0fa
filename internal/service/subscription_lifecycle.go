package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"

	"github.com/vitacare/vitacare/internal/domain/auditlog"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// SystemActor is the audit attribution used when no actor is supplied,
// i.e. scheduler-driven transitions.
const SystemActor = "system"

// TransitionRequest asks the lifecycle service to move a subscription to a
// target status. Actor is the caller-supplied identity for audit attribution;
// empty means the system scheduler.
type TransitionRequest struct {
	SubscriptionID string                   `json:"subscription_id"`
	TargetStatus   types.SubscriptionStatus `json:"target_status"`
	Reason         string                   `json:"reason"`
	Actor          string                   `json:"actor,omitempty"`
	// PaymentError carries the gateway error when transitioning to PaymentFailed
	PaymentError string `json:"payment_error,omitempty"`
}

func (r TransitionRequest) Validate() error {
	if r.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Please provide a subscription ID").
			Mark(ierr.ErrValidation)
	}
	if err := r.TargetStatus.Validate(); err != nil {
		return err
	}
	if r.TargetStatus == types.SubscriptionStatusPaused && r.Reason == "" {
		return ierr.NewError("pause reason is required").
			WithHint("Please provide a reason for pausing the subscription").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionLifecycleService is the state machine governing subscription
// status. It is the only component allowed to mutate a subscription's status.
type SubscriptionLifecycleService interface {
	// RequestTransition validates the requested edge against the transition
	// graph and, on success, commits the status change, its side effects, and
	// one history row as a single unit. A rejected transition leaves the
	// subscription unchanged.
	RequestTransition(ctx context.Context, req TransitionRequest) (*subscription.Subscription, error)

	// GetStatusHistory returns the append-only transition history, oldest first.
	GetStatusHistory(ctx context.Context, subscriptionID string) ([]*subscription.StatusHistory, error)
}

type subscriptionLifecycleService struct {
	ServiceParams
}

func NewSubscriptionLifecycleService(params ServiceParams) SubscriptionLifecycleService {
	return &subscriptionLifecycleService{
		ServiceParams: params,
	}
}

func (s *subscriptionLifecycleService) RequestTransition(ctx context.Context, req TransitionRequest) (*subscription.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Serialize mutations per subscription id; concurrent callers observe a
	// fresh read after acquiring the lock, so the loser of a race sees the
	// already-changed status and fails the edge test instead of double-applying.
	unlock := s.Locks.Lock(req.SubscriptionID)
	defer unlock()

	var result *subscription.Subscription
	operation := func() error {
		sub, err := s.attemptTransition(ctx, req)
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

func (s *subscriptionLifecycleService) attemptTransition(ctx context.Context, req TransitionRequest) (*subscription.Subscription, error) {
	sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	current := sub.SubscriptionStatus

	// Guard rules ahead of the generic edge test. Cancelled is terminal and
	// double-cancel is always rejected regardless of graph shape.
	if current == types.SubscriptionStatusCancelled {
		return nil, subscription.NewInvalidTransitionError(sub.ID, current, req.TargetStatus)
	}
	if req.TargetStatus == types.SubscriptionStatusPaused && current != types.SubscriptionStatusActive {
		return nil, subscription.NewInvalidTransitionError(sub.ID, current, req.TargetStatus)
	}

	if !current.CanTransitionTo(req.TargetStatus) {
		return nil, subscription.NewInvalidTransitionError(sub.ID, current, req.TargetStatus)
	}

	now := s.Clock.Now()

	// Work on a copy so a failed persist leaves the loaded aggregate untouched.
	updated := sub.Clone()
	updated.SubscriptionStatus = req.TargetStatus
	if err := s.applyEntrySideEffects(ctx, updated, current, req, now); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now
	updated.UpdatedBy = types.GetUserID(ctx)

	if err := s.SubRepo.Update(ctx, updated); err != nil {
		return nil, err
	}

	var changedBy *string
	if req.Actor != "" {
		changedBy = lo.ToPtr(req.Actor)
	}
	entry := subscription.NewStatusHistory(ctx, sub.ID, lo.ToPtr(current), req.TargetStatus, req.Reason, changedBy, now)
	if err := s.SubRepo.AppendStatusHistory(ctx, entry); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription transitioned",
		"subscription_id", sub.ID,
		"from_status", current,
		"to_status", req.TargetStatus,
		"reason", req.Reason,
		"actor", req.Actor,
	)

	s.publishTransitionEvent(ctx, updated, current, req, now)
	s.writeAudit(ctx, updated, current, req, now)

	return updated, nil
}

// applyEntrySideEffects applies the status-specific field updates for the
// status being entered. Fields set by prior statuses are historical artifacts
// and stay untouched except on reactivation.
func (s *subscriptionLifecycleService) applyEntrySideEffects(ctx context.Context, sub *subscription.Subscription, from types.SubscriptionStatus, req TransitionRequest, now time.Time) error {
	switch req.TargetStatus {
	case types.SubscriptionStatusActive:
		sub.PauseReason = ""
		sub.CancellationReason = ""
		if from == types.SubscriptionStatusPaused {
			sub.ResumedDate = &now
		}
		if from == types.SubscriptionStatusExpired {
			s.reactivate(sub, now)
		}

	case types.SubscriptionStatusTrialActive:
		if sub.TrialStartDate == nil {
			sub.TrialStartDate = &now
		}
		// The trial window comes from the plan catalog; without an end date
		// the expiration sweep could never close the trial.
		if sub.TrialEndDate == nil {
			p, err := s.PlanRepo.Get(ctx, sub.PlanID)
			if err != nil {
				return err
			}
			if p.TrialDays > 0 {
				trialEnd := now.AddDate(0, 0, p.TrialDays)
				sub.TrialEndDate = &trialEnd
			} else {
				s.Logger.Warnw("plan grants no trial days, trial has no end date",
					"subscription_id", sub.ID,
					"plan_id", sub.PlanID,
				)
			}
		}

	case types.SubscriptionStatusTrialExpired:
		if sub.TrialEndDate == nil || sub.TrialEndDate.After(now) {
			sub.TrialEndDate = &now
		}

	case types.SubscriptionStatusPaused:
		sub.PausedDate = &now
		sub.PauseReason = req.Reason

	case types.SubscriptionStatusCancelled:
		sub.CancelledDate = &now
		sub.CancellationReason = req.Reason
		sub.AutoRenew = false

	case types.SubscriptionStatusPaymentFailed:
		sub.LastPaymentFailedDate = &now
		sub.LastPaymentError = req.PaymentError
		if sub.LastPaymentError == "" {
			sub.LastPaymentError = req.Reason
		}
		sub.FailedPaymentAttempts++

	case types.SubscriptionStatusSuspended:
		sub.SuspendedDate = &now

	case types.SubscriptionStatusExpired:
		sub.ExpirationDate = &now
	}
	return nil
}

// reactivate resets the billing anchor for the Expired -> Active path. The
// caller is expected to have sequenced a successful charge before requesting
// the transition.
func (s *subscriptionLifecycleService) reactivate(sub *subscription.Subscription, now time.Time) {
	if err := sub.BillingCycle.Validate(); err != nil {
		s.Logger.Warnw("unrecognized billing cycle, falling back to monthly",
			"subscription_id", sub.ID,
			"billing_cycle", sub.BillingCycle,
		)
	}
	sub.StartDate = now
	sub.NextBillingDate = types.NextBillingDate(now, sub.BillingCycle)
	sub.CancelledDate = nil
	sub.ExpirationDate = nil
	sub.CancellationReason = ""
}

func (s *subscriptionLifecycleService) GetStatusHistory(ctx context.Context, subscriptionID string) ([]*subscription.StatusHistory, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("subscription_id is required").
			WithHint("Please provide a subscription ID").
			Mark(ierr.ErrValidation)
	}
	return s.SubRepo.ListStatusHistory(ctx, subscriptionID)
}

// publishTransitionEvent emits the transition to the notification sink.
// Publish failures are logged, not surfaced: the transition is already
// committed and notification delivery is not part of the atomic unit.
func (s *subscriptionLifecycleService) publishTransitionEvent(ctx context.Context, sub *subscription.Subscription, from types.SubscriptionStatus, req TransitionRequest, now time.Time) {
	if s.EventPublisher == nil {
		return
	}

	payload, err := json.Marshal(types.SubscriptionTransitionPayload{
		SubscriptionID: sub.ID,
		FromStatus:     lo.ToPtr(from),
		ToStatus:       req.TargetStatus,
		Reason:         req.Reason,
		Actor:          req.Actor,
		Timestamp:      now,
	})
	if err != nil {
		s.Logger.Errorw("failed to marshal transition payload", "error", err, "subscription_id", sub.ID)
		return
	}

	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: types.WebhookEventNameForTransition(lo.ToPtr(from), req.TargetStatus),
		TenantID:  sub.TenantID,
		Timestamp: now,
		Payload:   payload,
	}
	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish transition event",
			"error", err,
			"subscription_id", sub.ID,
			"event_name", event.EventName,
		)
	}
}

func (s *subscriptionLifecycleService) writeAudit(ctx context.Context, sub *subscription.Subscription, from types.SubscriptionStatus, req TransitionRequest, now time.Time) {
	if s.AuditSink == nil {
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = SystemActor
	}
	detail := fmt.Sprintf("%s -> %s: %s", from, req.TargetStatus, req.Reason)
	record := auditlog.NewRecord(ctx, actor, auditlog.ActionTransition, sub.ID, detail, now)
	if err := s.AuditSink.Write(ctx, record); err != nil {
		s.Logger.Errorw("failed to write audit record",
			"error", err,
			"subscription_id", sub.ID,
			"action", record.Action,
		)
	}
}
