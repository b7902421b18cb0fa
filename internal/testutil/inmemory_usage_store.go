package testutil

import (
	"context"
	"sync"

	"github.com/vitacare/vitacare/internal/domain/privilege"
	ierr "github.com/vitacare/vitacare/internal/errors"
)

// InMemoryUsageStore implements privilege.Repository
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*privilege.UsageRecord // subscriptionID -> privilegeName -> record
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		records: make(map[string]map[string]*privilege.UsageRecord),
	}
}

func (s *InMemoryUsageStore) GetRecord(ctx context.Context, subscriptionID, privilegeName string) (*privilege.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, ok := s.records[subscriptionID][privilegeName]; ok {
		clone := *record
		return &clone, nil
	}
	return nil, ierr.NewError("usage record not found").
		WithReportableDetails(map[string]any{
			"subscription_id": subscriptionID,
			"privilege_name":  privilegeName,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryUsageStore) ListRecords(ctx context.Context, subscriptionID string) ([]*privilege.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*privilege.UsageRecord
	for _, record := range s.records[subscriptionID] {
		clone := *record
		result = append(result, &clone)
	}
	return result, nil
}

func (s *InMemoryUsageStore) Upsert(ctx context.Context, record *privilege.UsageRecord) error {
	if record == nil {
		return ierr.NewError("usage record cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[record.SubscriptionID] == nil {
		s.records[record.SubscriptionID] = make(map[string]*privilege.UsageRecord)
	}
	clone := *record
	s.records[record.SubscriptionID][record.PrivilegeName] = &clone
	return nil
}

// Clear removes all usage records
func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[string]*privilege.UsageRecord)
}
