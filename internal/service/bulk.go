package service

import (
	"context"
	"fmt"

	"github.com/vitacare/vitacare/internal/domain/auditlog"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// BulkTransitionResult aggregates the outcome of a bulk transition.
type BulkTransitionResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Errors maps subscription id to the business-rule failure message
	Errors map[string]string `json:"errors,omitempty"`
}

// BulkTransitionService applies one transition across a set of subscriptions
// with partial-failure semantics: one bad subscription never aborts the batch.
// Only systemic failures (store unreachable) abort the remaining items.
type BulkTransitionService interface {
	BulkTransition(ctx context.Context, subscriptionIDs []string, targetStatus types.SubscriptionStatus, reason, actor string) (*BulkTransitionResult, error)
}

type bulkTransitionService struct {
	ServiceParams
	lifecycle SubscriptionLifecycleService
}

func NewBulkTransitionService(params ServiceParams, lifecycle SubscriptionLifecycleService) BulkTransitionService {
	return &bulkTransitionService{
		ServiceParams: params,
		lifecycle:     lifecycle,
	}
}

func (s *bulkTransitionService) BulkTransition(ctx context.Context, subscriptionIDs []string, targetStatus types.SubscriptionStatus, reason, actor string) (*BulkTransitionResult, error) {
	if len(subscriptionIDs) == 0 {
		return nil, ierr.NewError("subscription_ids are required").
			WithHint("Please provide at least one subscription ID").
			Mark(ierr.ErrValidation)
	}
	if err := targetStatus.Validate(); err != nil {
		return nil, err
	}

	result := &BulkTransitionResult{
		Total:  len(subscriptionIDs),
		Errors: make(map[string]string),
	}

	for _, id := range subscriptionIDs {
		// Cooperative cancellation between items: an operator can abort a
		// long-running batch without corrupting the in-flight item.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.lifecycle.RequestTransition(ctx, TransitionRequest{
			SubscriptionID: id,
			TargetStatus:   targetStatus,
			Reason:         reason,
			Actor:          actor,
		})
		if err == nil {
			result.Succeeded++
			continue
		}

		if ierr.IsSystemError(err) {
			// Not a business-rule rejection; abort the remaining batch.
			return result, err
		}

		result.Failed++
		result.Errors[id] = err.Error()
		s.Logger.Warnw("bulk transition item failed",
			"subscription_id", id,
			"target_status", targetStatus,
			"error", err,
		)
	}

	s.Logger.Infow("bulk transition completed",
		"target_status", targetStatus,
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"actor", actor,
	)

	s.writeAudit(ctx, targetStatus, reason, actor, result)
	return result, nil
}

func (s *bulkTransitionService) writeAudit(ctx context.Context, targetStatus types.SubscriptionStatus, reason, actor string, result *BulkTransitionResult) {
	if s.AuditSink == nil {
		return
	}
	if actor == "" {
		actor = SystemActor
	}
	detail := fmt.Sprintf("bulk -> %s (%s): %d/%d succeeded", targetStatus, reason, result.Succeeded, result.Total)
	record := auditlog.NewRecord(ctx, actor, auditlog.ActionBulkTransition, "batch", detail, s.Clock.Now())
	if err := s.AuditSink.Write(ctx, record); err != nil {
		s.Logger.Errorw("failed to write audit record", "error", err, "action", record.Action)
	}
}
