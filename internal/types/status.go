package types

// Status is the record-level lifecycle of a stored resource. This is distinct
// from SubscriptionStatus, which tracks the business state machine.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
