package testutil

import (
	"context"
	"sync"

	"github.com/vitacare/vitacare/internal/domain/plan"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]

	mu         sync.Mutex
	privileges map[string][]*plan.Privilege
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
		privileges:    make(map[string][]*plan.Privilege),
	}
}

// AddPlan seeds a plan into the catalog
func (s *InMemoryPlanStore) AddPlan(ctx context.Context, p *plan.Plan) error {
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

// AddPrivilege seeds a privilege grant for a plan
func (s *InMemoryPlanStore) AddPrivilege(planID string, p *plan.Privilege) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privileges[planID] = append(s.privileges[planID], p)
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, exists := s.InMemoryStore.Get(ctx, id)
	if !exists {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"plan_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPlanStore) GetPrivileges(ctx context.Context, planID string) ([]*plan.Privilege, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*plan.Privilege{}, s.privileges[planID]...), nil
}

func (s *InMemoryPlanStore) GetBillingCycle(ctx context.Context, planID string) (types.BillingCycle, error) {
	p, err := s.Get(ctx, planID)
	if err != nil {
		return "", err
	}
	return p.BillingCycle, nil
}

// Clear removes all plans and privileges
func (s *InMemoryPlanStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privileges = make(map[string][]*plan.Privilege)
}
