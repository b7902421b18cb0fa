package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/vitacare/vitacare/internal/domain/subscription"
	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository with the same
// optimistic-concurrency contract as the production store: Update fails with
// a version conflict when the caller's aggregate is stale.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	mu      sync.Mutex
	history map[string][]*subscription.StatusHistory

	// errOnGet and errOnUpdate inject systemic failures for batch-abort tests
	errOnGet    error
	errOnUpdate error
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		history:       make(map[string][]*subscription.StatusHistory),
	}
}

// FailGetWith makes every Get fail with err until called with nil
func (s *InMemorySubscriptionStore) FailGetWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errOnGet = err
}

// FailUpdateWith makes every Update fail with err until called with nil
func (s *InMemorySubscriptionStore) FailUpdateWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errOnUpdate = err
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").Mark(ierr.ErrValidation)
	}
	if sub.Version == 0 {
		sub.Version = 1
	}
	return s.InMemoryStore.Create(ctx, sub.ID, sub.Clone())
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.Lock()
	errOnGet := s.errOnGet
	s.mu.Unlock()
	if errOnGet != nil {
		return nil, errOnGet
	}

	sub, exists := s.InMemoryStore.Get(ctx, id)
	if !exists {
		return nil, subscription.NewNotFoundError(id)
	}
	return sub.Clone(), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	errOnUpdate := s.errOnUpdate
	s.mu.Unlock()
	if errOnUpdate != nil {
		return errOnUpdate
	}

	stored, exists := s.InMemoryStore.Get(ctx, sub.ID)
	if !exists {
		return subscription.NewNotFoundError(sub.ID)
	}
	if stored.Version != sub.Version {
		return subscription.NewVersionConflictError(sub.ID, sub.Version, stored.Version)
	}

	sub.Version++
	return s.InMemoryStore.Update(ctx, sub.ID, sub.Clone())
}

func (s *InMemorySubscriptionStore) ListByStatus(ctx context.Context, status types.SubscriptionStatus) ([]*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, status,
		func(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
			return sub.SubscriptionStatus == filter.(types.SubscriptionStatus)
		},
		func(i, j *subscription.Subscription) bool {
			return i.ID < j.ID
		},
	)

	result := make([]*subscription.Subscription, len(matches))
	for i, sub := range matches {
		result[i] = sub.Clone()
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) AppendStatusHistory(ctx context.Context, entry *subscription.StatusHistory) error {
	if entry == nil {
		return ierr.NewError("history entry cannot be nil").Mark(ierr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.history[entry.SubscriptionID] = append(s.history[entry.SubscriptionID], &clone)
	return nil
}

func (s *InMemorySubscriptionStore) ListStatusHistory(ctx context.Context, subscriptionID string) ([]*subscription.StatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[subscriptionID]
	result := make([]*subscription.StatusHistory, len(entries))
	for i, entry := range entries {
		clone := *entry
		result[i] = &clone
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ChangedAt.Before(result[j].ChangedAt)
	})
	return result, nil
}

// Clear removes all subscriptions and history rows
func (s *InMemorySubscriptionStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]*subscription.StatusHistory)
	s.errOnGet = nil
	s.errOnUpdate = nil
}
