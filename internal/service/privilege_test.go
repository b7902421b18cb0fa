package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/vitacare/vitacare/internal/domain/plan"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/testutil"
	"github.com/vitacare/vitacare/internal/types"
)

type PrivilegeServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PrivilegeService
}

func TestPrivilegeService(t *testing.T) {
	suite.Run(t, new(PrivilegeServiceSuite))
}

func (s *PrivilegeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPrivilegeService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.seedPlanAndSubscription()
}

// seedPlanAndSubscription stores one active monthly subscription on a plan
// granting 2 teleconsultations and unlimited chat sessions per period.
func (s *PrivilegeServiceSuite) seedPlanAndSubscription() {
	ctx := testutil.GetContext()
	now := s.GetClock().Now()
	stores := s.GetStores()

	s.NoError(stores.PlanRepo.AddPlan(ctx, &plan.Plan{
		ID:           "plan_basic",
		Name:         "Basic Care",
		Price:        decimal.NewFromInt(30),
		Currency:     "usd",
		BillingCycle: types.BILLING_CYCLE_MONTHLY,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}))
	stores.PlanRepo.AddPrivilege("plan_basic", &plan.Privilege{
		ID:     "priv_1",
		PlanID: "plan_basic",
		Name:   plan.PrivilegeTeleconsultation,
		Value:  2,
	})
	stores.PlanRepo.AddPrivilege("plan_basic", &plan.Privilege{
		ID:     "priv_2",
		PlanID: "plan_basic",
		Name:   plan.PrivilegeChatSession,
		Value:  plan.UnlimitedAllowance,
	})

	s.NoError(stores.SubRepo.Create(ctx, &subscription.Subscription{
		ID:                 "subs_1",
		CustomerID:         "cust_1",
		PlanID:             "plan_basic",
		SubscriptionStatus: types.SubscriptionStatusActive,
		Currency:           "usd",
		CurrentPrice:       decimal.NewFromInt(30),
		BillingCycle:       types.BILLING_CYCLE_MONTHLY,
		StartDate:          now,
		NextBillingDate:    now.AddDate(0, 1, 0),
		AutoRenew:          true,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}))
}

func (s *PrivilegeServiceSuite) TestConsumeUpToAllowance() {
	ctx := testutil.GetContext()

	ok, err := s.service.CanConsume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.True(ok)

	first, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(int64(1), first.UsedValue)

	second, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(int64(2), second.UsedValue)

	ok, err = s.service.CanConsume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.False(ok, "allowance is exhausted")

	_, err = s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.Error(err)
	s.True(ierr.IsQuotaExceeded(err))

	// The failed attempt must not have moved the counter.
	record, err := s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(int64(2), record.UsedValue)
}

func (s *PrivilegeServiceSuite) TestFirstConsumeCreatesPeriodWindow() {
	ctx := testutil.GetContext()
	now := s.GetClock().Now()

	record, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(now, record.UsagePeriodStart)
	s.Equal(types.NextBillingDate(now, types.BILLING_CYCLE_MONTHLY), record.UsagePeriodEnd)
}

func (s *PrivilegeServiceSuite) TestPrivilegeNotGranted() {
	ctx := testutil.GetContext()

	ok, err := s.service.CanConsume(ctx, "subs_1", plan.PrivilegeDocumentUpload)
	s.NoError(err, "an absent privilege is not an error")
	s.False(ok)

	_, err = s.service.Consume(ctx, "subs_1", plan.PrivilegeDocumentUpload)
	s.Error(err)
	s.True(ierr.IsPrivilegeNotGranted(err))
}

func (s *PrivilegeServiceSuite) TestUnlimitedPrivilegeNeverExhausts() {
	ctx := testutil.GetContext()

	for i := 1; i <= 25; i++ {
		record, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeChatSession)
		s.NoError(err)
		s.Equal(int64(i), record.UsedValue)
	}

	ok, err := s.service.CanConsume(ctx, "subs_1", plan.PrivilegeChatSession)
	s.NoError(err)
	s.True(ok)
}

func (s *PrivilegeServiceSuite) TestConcurrentConsumeNeverOversells() {
	ctx := testutil.GetContext()

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.True(ierr.IsQuotaExceeded(err))
			rejected++
		}
	}
	s.Equal(2, succeeded, "exactly the allowance is granted")
	s.Equal(callers-2, rejected)

	record, err := s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(int64(2), record.UsedValue)
}

func (s *PrivilegeServiceSuite) TestResetPeriodZeroesCounters() {
	ctx := testutil.GetContext()

	_, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	_, err = s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)

	s.NoError(s.service.ResetPeriod(ctx, "subs_1"))

	record, err := s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(int64(0), record.UsedValue)

	ok, err := s.service.CanConsume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.True(ok)
}

func (s *PrivilegeServiceSuite) TestResetPeriodAdvancesWindowOncePerBoundary() {
	ctx := testutil.GetContext()
	start := s.GetClock().Now()
	periodEnd := types.NextBillingDate(start, types.BILLING_CYCLE_MONTHLY)

	_, err := s.service.Consume(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)

	// Mid-period reset: the counter drops, the window stays.
	s.NoError(s.service.ResetPeriod(ctx, "subs_1"))
	record, err := s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(start, record.UsagePeriodStart)
	s.Equal(periodEnd, record.UsagePeriodEnd)

	// Cross the boundary: the window rolls forward exactly one cycle.
	s.GetClock().Set(periodEnd.Add(time.Hour))
	s.NoError(s.service.ResetPeriod(ctx, "subs_1"))
	record, err = s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(periodEnd, record.UsagePeriodStart)
	s.Equal(types.NextBillingDate(periodEnd, types.BILLING_CYCLE_MONTHLY), record.UsagePeriodEnd)

	// A duplicate invocation at the same rollover does not advance again.
	s.NoError(s.service.ResetPeriod(ctx, "subs_1"))
	record, err = s.GetStores().UsageRepo.GetRecord(ctx, "subs_1", plan.PrivilegeTeleconsultation)
	s.NoError(err)
	s.Equal(periodEnd, record.UsagePeriodStart)
}

func (s *PrivilegeServiceSuite) TestUnknownSubscription() {
	ctx := testutil.GetContext()

	_, err := s.service.CanConsume(ctx, "subs_missing", plan.PrivilegeTeleconsultation)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	_, err = s.service.Consume(ctx, "subs_missing", plan.PrivilegeTeleconsultation)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
