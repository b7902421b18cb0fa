package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/vitacare/vitacare/internal/domain/auditlog"
	"github.com/vitacare/vitacare/internal/domain/plan"
	"github.com/vitacare/vitacare/internal/domain/proration"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/testutil"
	"github.com/vitacare/vitacare/internal/types"
)

// newTestServiceParams wires ServiceParams from the base suite's fakes.
func newTestServiceParams(base *testutil.BaseServiceTestSuite) ServiceParams {
	stores := base.GetStores()
	return ServiceParams{
		Logger:              base.GetLogger(),
		Config:              base.GetConfig(),
		Clock:               base.GetClock(),
		Locks:               base.GetLocks(),
		Cache:               base.GetCache(),
		SubRepo:             stores.SubRepo,
		PlanRepo:            stores.PlanRepo,
		UsageRepo:           stores.UsageRepo,
		EventPublisher:      base.GetPublisher(),
		AuditSink:           base.GetAuditSink(),
		ProrationCalculator: proration.NewCalculator(),
	}
}

type SubscriptionLifecycleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionLifecycleService
}

func TestSubscriptionLifecycleService(t *testing.T) {
	suite.Run(t, new(SubscriptionLifecycleServiceSuite))
}

func (s *SubscriptionLifecycleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionLifecycleService(newTestServiceParams(&s.BaseServiceTestSuite))

	s.NoError(s.GetStores().PlanRepo.AddPlan(testutil.GetContext(), &plan.Plan{
		ID:           "plan_basic",
		Name:         "Basic Care",
		Price:        decimal.NewFromInt(30),
		Currency:     "usd",
		BillingCycle: types.BILLING_CYCLE_MONTHLY,
		TrialDays:    14,
		BaseModel:    types.GetDefaultBaseModel(testutil.GetContext()),
	}))
}

// seedSubscription stores a subscription in the given status with sensible
// monthly-plan defaults.
func (s *SubscriptionLifecycleServiceSuite) seedSubscription(id string, status types.SubscriptionStatus, mutate ...func(*subscription.Subscription)) *subscription.Subscription {
	ctx := testutil.GetContext()
	now := s.GetClock().Now()

	sub := &subscription.Subscription{
		ID:                 id,
		CustomerID:         "cust_1",
		PlanID:             "plan_basic",
		SubscriptionStatus: status,
		Currency:           "usd",
		CurrentPrice:       decimal.NewFromInt(30),
		BillingCycle:       types.BILLING_CYCLE_MONTHLY,
		StartDate:          now.AddDate(0, -1, 0),
		NextBillingDate:    now.AddDate(0, 0, 15),
		AutoRenew:          true,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	for _, m := range mutate {
		m(sub)
	}
	s.NoError(s.GetStores().SubRepo.Create(ctx, sub))
	return sub
}

func (s *SubscriptionLifecycleServiceSuite) TestValidTransitionCommitsStatusAndHistory() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusPending)

	updated, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         "payment method confirmed",
		Actor:          "user_42",
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)

	stored, err := s.GetStores().SubRepo.Get(ctx, "subs_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, stored.SubscriptionStatus)

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Len(history, 1)
	s.Equal(types.SubscriptionStatusPending, *history[0].FromStatus)
	s.Equal(types.SubscriptionStatusActive, history[0].ToStatus)
	s.Equal("payment method confirmed", history[0].Reason)
	s.Require().NotNil(history[0].ChangedBy)
	s.Equal("user_42", *history[0].ChangedBy)
}

func (s *SubscriptionLifecycleServiceSuite) TestValidTransitionPublishesEventAndAudit() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusPending)

	_, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         "payment method confirmed",
		Actor:          "user_42",
	})
	s.NoError(err)

	s.Equal([]string{types.WebhookEventSubscriptionActivated}, s.GetPublisher().EventNames())

	records := s.GetAuditSink().Records()
	s.Require().Len(records, 1)
	s.Equal(auditlog.ActionTransition, records[0].Action)
	s.Equal("user_42", records[0].Actor)
	s.Equal("subs_1", records[0].EntityID)
}

func (s *SubscriptionLifecycleServiceSuite) TestInvalidTransitionLeavesSubscriptionUntouched() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusTrialExpired)

	_, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusExpired,
		Reason:         "manual",
	})
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))

	stored, err := s.GetStores().SubRepo.Get(ctx, "subs_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrialExpired, stored.SubscriptionStatus)

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Empty(history, "a rejected transition writes no history")
	s.Empty(s.GetPublisher().Events())
	s.Empty(s.GetAuditSink().Records())
}

func (s *SubscriptionLifecycleServiceSuite) TestDoubleCancelSucceedsExactlyOnce() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusActive)

	req := TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusCancelled,
		Reason:         "no longer needed",
	}

	first, err := s.service.RequestTransition(ctx, req)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, first.SubscriptionStatus)

	_, err = s.service.RequestTransition(ctx, req)
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Len(history, 1)
}

func (s *SubscriptionLifecycleServiceSuite) TestCancelledIsTerminal() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusCancelled)

	for _, target := range types.SubscriptionStatusValues {
		_, err := s.service.RequestTransition(ctx, TransitionRequest{
			SubscriptionID: "subs_1",
			TargetStatus:   target,
			Reason:         "attempt",
		})
		s.Error(err, "cancelled must reject transition to %s", target)
	}
}

func (s *SubscriptionLifecycleServiceSuite) TestPauseRequiresReason() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusActive)

	_, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusPaused,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionLifecycleServiceSuite) TestPauseResumeRoundTrip() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusActive)

	paused, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusPaused,
		Reason:         "traveling abroad",
		Actor:          "user_42",
	})
	s.NoError(err)
	s.Require().NotNil(paused.PausedDate)
	s.Equal(s.GetClock().Now(), *paused.PausedDate)
	s.Equal("traveling abroad", paused.PauseReason)

	s.GetClock().Advance(48 * time.Hour)

	resumed, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         "back home",
		Actor:          "user_42",
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resumed.SubscriptionStatus)
	s.Require().NotNil(resumed.ResumedDate)
	s.Equal(s.GetClock().Now(), *resumed.ResumedDate)
	s.Empty(resumed.PauseReason, "resume clears the pause reason")
	s.NotNil(resumed.PausedDate, "paused date stays as a historical artifact")

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Require().Len(history, 2)
	s.Equal(types.SubscriptionStatusPaused, history[0].ToStatus)
	s.Equal(types.SubscriptionStatusActive, history[1].ToStatus)

	s.Equal([]string{
		types.WebhookEventSubscriptionPaused,
		types.WebhookEventSubscriptionResumed,
	}, s.GetPublisher().EventNames())
}

func (s *SubscriptionLifecycleServiceSuite) TestCancelSideEffects() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusActive)

	cancelled, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusCancelled,
		Reason:         "switching providers",
		Actor:          "user_42",
	})
	s.NoError(err)
	s.Require().NotNil(cancelled.CancelledDate)
	s.Equal("switching providers", cancelled.CancellationReason)
	s.False(cancelled.AutoRenew)
}

func (s *SubscriptionLifecycleServiceSuite) TestPaymentFailedIncrementsAttempts() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusActive)

	failed, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusPaymentFailed,
		Reason:         "renewal charge declined",
		PaymentError:   "card_declined",
	})
	s.NoError(err)
	s.Equal(1, failed.FailedPaymentAttempts)
	s.Equal("card_declined", failed.LastPaymentError)
	s.Require().NotNil(failed.LastPaymentFailedDate)

	// Recovery and a second failure keep counting up.
	_, err = s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         types.TransitionReasonPaymentRecovery,
	})
	s.NoError(err)

	failed, err = s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusPaymentFailed,
		Reason:         "renewal charge declined",
		PaymentError:   "insufficient_funds",
	})
	s.NoError(err)
	s.Equal(2, failed.FailedPaymentAttempts)
	s.Equal("insufficient_funds", failed.LastPaymentError)
}

func (s *SubscriptionLifecycleServiceSuite) TestDunningCapSignalsSuspension() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusPaymentFailed, func(sub *subscription.Subscription) {
		sub.FailedPaymentAttempts = 3
	})

	stored, err := s.GetStores().SubRepo.Get(ctx, "subs_1")
	s.NoError(err)
	s.True(stored.ShouldSuspend(s.GetConfig().Billing.MaxFailedPaymentAttempts))

	suspended, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusSuspended,
		Reason:         "dunning cap reached",
	})
	s.NoError(err)
	s.Require().NotNil(suspended.SuspendedDate)
	s.False(suspended.ShouldSuspend(s.GetConfig().Billing.MaxFailedPaymentAttempts))
}

func (s *SubscriptionLifecycleServiceSuite) TestReactivationResetsBillingAnchor() {
	ctx := testutil.GetContext()
	expiredAt := s.GetClock().Now().AddDate(0, 0, -10)
	s.seedSubscription("subs_1", types.SubscriptionStatusExpired, func(sub *subscription.Subscription) {
		sub.ExpirationDate = &expiredAt
		sub.NextBillingDate = expiredAt
		sub.CancellationReason = "stale"
	})

	now := s.GetClock().Now()
	reactivated, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         "renewal payment collected",
		Actor:          "user_42",
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, reactivated.SubscriptionStatus)
	s.Equal(now, reactivated.StartDate)
	s.Equal(types.NextBillingDate(now, types.BILLING_CYCLE_MONTHLY), reactivated.NextBillingDate)
	s.Nil(reactivated.ExpirationDate)
	s.Nil(reactivated.CancelledDate)
	s.Empty(reactivated.CancellationReason)

	s.Equal([]string{types.WebhookEventSubscriptionReactivated}, s.GetPublisher().EventNames())
}

func (s *SubscriptionLifecycleServiceSuite) TestSystemTransitionHasNilActor() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusTrialActive)

	_, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusTrialExpired,
		Reason:         types.TransitionReasonTrialEnded,
	})
	s.NoError(err)

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Require().Len(history, 1)
	s.Nil(history[0].ChangedBy, "scheduler transitions carry no actor")

	records := s.GetAuditSink().Records()
	s.Require().Len(records, 1)
	s.Equal(SystemActor, records[0].Actor)
}

func (s *SubscriptionLifecycleServiceSuite) TestTrialEntryResolvesWindowFromPlan() {
	ctx := testutil.GetContext()
	now := s.GetClock().Now()
	s.seedSubscription("subs_1", types.SubscriptionStatusPending)

	started, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusTrialActive,
		Reason:         "trial granted",
	})
	s.NoError(err)
	s.Require().NotNil(started.TrialStartDate)
	s.Equal(now, *started.TrialStartDate)
	s.Require().NotNil(started.TrialEndDate, "trial window must close so the sweep can end it")
	s.Equal(now.AddDate(0, 0, 14), *started.TrialEndDate)

	// A sweep past the window now ends the trial without manual intervention.
	s.GetClock().Set(started.TrialEndDate.Add(time.Hour))
	sweep := NewSweepService(newTestServiceParams(&s.BaseServiceTestSuite), s.service)
	result, err := sweep.ProcessExpirationSweep(ctx)
	s.NoError(err)
	s.Equal(1, result.TrialsExpired)

	stored, err := s.GetStores().SubRepo.Get(ctx, "subs_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrialExpired, stored.SubscriptionStatus)
}

func (s *SubscriptionLifecycleServiceSuite) TestTrialEntryKeepsPresetWindow() {
	ctx := testutil.GetContext()
	presetEnd := s.GetClock().Now().AddDate(0, 0, 7)
	s.seedSubscription("subs_1", types.SubscriptionStatusPending, func(sub *subscription.Subscription) {
		sub.TrialEndDate = &presetEnd
	})

	started, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusTrialActive,
		Reason:         "trial granted",
	})
	s.NoError(err)
	s.Require().NotNil(started.TrialEndDate)
	s.Equal(presetEnd, *started.TrialEndDate, "a caller-set window is left alone")
}

func (s *SubscriptionLifecycleServiceSuite) TestTrialExpiredStampsTrialEnd() {
	ctx := testutil.GetContext()
	future := s.GetClock().Now().AddDate(0, 0, 5)
	s.seedSubscription("subs_1", types.SubscriptionStatusTrialActive, func(sub *subscription.Subscription) {
		sub.TrialEndDate = &future
	})

	// Early expiry (e.g. operator action) clamps the trial end to now.
	expired, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_1",
		TargetStatus:   types.SubscriptionStatusTrialExpired,
		Reason:         "trial ended early",
	})
	s.NoError(err)
	s.Require().NotNil(expired.TrialEndDate)
	s.Equal(s.GetClock().Now(), *expired.TrialEndDate)
}

func (s *SubscriptionLifecycleServiceSuite) TestUnknownSubscription() {
	ctx := testutil.GetContext()
	_, err := s.service.RequestTransition(ctx, TransitionRequest{
		SubscriptionID: "subs_missing",
		TargetStatus:   types.SubscriptionStatusActive,
		Reason:         "attempt",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionLifecycleServiceSuite) TestRequestValidation() {
	ctx := testutil.GetContext()

	s.Run("missing subscription id", func() {
		_, err := s.service.RequestTransition(ctx, TransitionRequest{
			TargetStatus: types.SubscriptionStatusActive,
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("invalid target status", func() {
		_, err := s.service.RequestTransition(ctx, TransitionRequest{
			SubscriptionID: "subs_1",
			TargetStatus:   types.SubscriptionStatus("limbo"),
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *SubscriptionLifecycleServiceSuite) TestGetStatusHistoryOrdering() {
	ctx := testutil.GetContext()
	s.seedSubscription("subs_1", types.SubscriptionStatusPending)

	steps := []TransitionRequest{
		{SubscriptionID: "subs_1", TargetStatus: types.SubscriptionStatusTrialActive, Reason: "trial granted"},
		{SubscriptionID: "subs_1", TargetStatus: types.SubscriptionStatusActive, Reason: "converted"},
		{SubscriptionID: "subs_1", TargetStatus: types.SubscriptionStatusCancelled, Reason: "done"},
	}
	for _, step := range steps {
		_, err := s.service.RequestTransition(ctx, step)
		s.NoError(err)
		s.GetClock().Advance(time.Hour)
	}

	history, err := s.service.GetStatusHistory(ctx, "subs_1")
	s.NoError(err)
	s.Require().Len(history, 3)
	for i, step := range steps {
		s.Equal(step.TargetStatus, history[i].ToStatus)
	}
	s.True(history[0].ChangedAt.Before(history[2].ChangedAt))
}

func (s *SubscriptionLifecycleServiceSuite) TestGetStatusHistoryRequiresID() {
	ctx := testutil.GetContext()
	_, err := s.service.GetStatusHistory(ctx, "")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
