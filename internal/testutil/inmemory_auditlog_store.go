package testutil

import (
	"context"
	"sync"

	"github.com/vitacare/vitacare/internal/domain/auditlog"
)

// InMemoryAuditSink implements auditlog.Sink by capturing written records
type InMemoryAuditSink struct {
	mu       sync.Mutex
	records  []*auditlog.Record
	failWith error
}

func NewInMemoryAuditSink() *InMemoryAuditSink {
	return &InMemoryAuditSink{}
}

func (s *InMemoryAuditSink) Write(ctx context.Context, record *auditlog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	clone := *record
	s.records = append(s.records, &clone)
	return nil
}

// Records returns a copy of all captured records in write order
func (s *InMemoryAuditSink) Records() []*auditlog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*auditlog.Record, len(s.records))
	copy(out, s.records)
	return out
}

// FailWith makes subsequent writes return err. Pass nil to restore.
func (s *InMemoryAuditSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Clear drops all captured records
func (s *InMemoryAuditSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.failWith = nil
}
