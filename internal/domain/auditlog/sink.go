package auditlog

import "context"

// Sink receives audit records. The audit log itself is an external system;
// write failures are logged by callers, never folded into business results.
type Sink interface {
	Write(ctx context.Context, record *Record) error
}
