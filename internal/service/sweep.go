package service

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// SweepResult summarizes one expiration sweep pass.
type SweepResult struct {
	// Scanned is the number of subscriptions evaluated
	Scanned int `json:"scanned"`
	// Expired is the number of Active subscriptions moved to Expired
	Expired int `json:"expired"`
	// TrialsExpired is the number of TrialActive subscriptions moved to TrialExpired
	TrialsExpired int `json:"trials_expired"`
	// Failed is the number of per-item business-rule failures
	Failed int `json:"failed"`
	// Errors maps subscription id to the failure message
	Errors map[string]string `json:"errors,omitempty"`
}

// SweepService is the scheduler entry point for time-based transitions. A
// sweep is safe to run concurrently and repeatedly: subscriptions already past
// the sweep's target state are skipped, not re-transitioned.
type SweepService interface {
	ProcessExpirationSweep(ctx context.Context) (*SweepResult, error)
}

type sweepService struct {
	ServiceParams
	lifecycle SubscriptionLifecycleService
}

func NewSweepService(params ServiceParams, lifecycle SubscriptionLifecycleService) SweepService {
	return &sweepService{
		ServiceParams: params,
		lifecycle:     lifecycle,
	}
}

func (s *sweepService) ProcessExpirationSweep(ctx context.Context) (*SweepResult, error) {
	now := s.Clock.Now()

	active, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	trialing, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusTrialActive)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Errors: make(map[string]string)}
	var mu sync.Mutex
	var sysErr error

	// A systemic failure aborts the remaining batch: the first one is
	// recorded and cancels sweepCtx, turning queued pool items into no-ops.
	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := pool.New().WithMaxGoroutines(s.Config.Sweep.Workers)

	dispatch := func(id string, target types.SubscriptionStatus, reason string) {
		mu.Lock()
		result.Scanned++
		mu.Unlock()
		p.Go(func() {
			if sweepCtx.Err() != nil {
				return
			}
			if err := s.sweepOne(sweepCtx, id, target, reason, result, &mu); err != nil {
				mu.Lock()
				if sysErr == nil {
					sysErr = err
				}
				mu.Unlock()
				cancel()
			}
		})
	}

	for _, sub := range active {
		// A renewal payment that succeeded would have advanced the billing
		// date past now; anything still behind it is due for expiration.
		if sub.NextBillingDate.After(now) {
			continue
		}
		dispatch(sub.ID, types.SubscriptionStatusExpired, types.TransitionReasonPeriodExpired)
	}

	for _, sub := range trialing {
		if sub.TrialEndDate == nil || sub.TrialEndDate.After(now) {
			continue
		}
		dispatch(sub.ID, types.SubscriptionStatusTrialExpired, types.TransitionReasonTrialEnded)
	}

	p.Wait()

	s.Logger.Infow("expiration sweep completed",
		"scanned", result.Scanned,
		"expired", result.Expired,
		"trials_expired", result.TrialsExpired,
		"failed", result.Failed,
	)

	if sysErr != nil {
		return result, sysErr
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// sweepOne transitions one subscription. Business-rule failures are folded
// into the per-item result; a systemic failure is returned so the caller can
// abort the remaining batch.
func (s *sweepService) sweepOne(ctx context.Context, id string, target types.SubscriptionStatus, reason string, result *SweepResult, mu *sync.Mutex) error {
	_, err := s.lifecycle.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: id,
		TargetStatus:   target,
		Reason:         reason,
	})

	mu.Lock()
	defer mu.Unlock()

	switch {
	case err == nil:
		if target == types.SubscriptionStatusExpired {
			result.Expired++
		} else {
			result.TrialsExpired++
		}
	case ierr.IsInvalidTransition(err) || ierr.IsNotFound(err):
		// Another sweep or an interactive caller got there first; skip.
		s.Logger.Debugw("sweep skipped subscription", "subscription_id", id, "target_status", target, "error", err)
	case ierr.IsSystemError(err):
		s.Logger.Errorw("sweep aborting on systemic failure", "subscription_id", id, "target_status", target, "error", err)
		return err
	default:
		result.Failed++
		result.Errors[id] = err.Error()
		s.Logger.Errorw("sweep transition failed", "subscription_id", id, "target_status", target, "error", err)
	}
	return nil
}
