package privilege

import "context"

// Repository provides access to privilege usage records. GetRecord returns a
// not-found error when the subscription has never consumed the privilege;
// callers treat that as a zero counter.
type Repository interface {
	GetRecord(ctx context.Context, subscriptionID, privilegeName string) (*UsageRecord, error)
	ListRecords(ctx context.Context, subscriptionID string) ([]*UsageRecord, error)
	Upsert(ctx context.Context, record *UsageRecord) error
}
