package types

import (
	"encoding/json"
	"time"
)

// Webhook event names emitted by the lifecycle core. An external notification
// service subscribes to these to send emails/SMS; this core never formats or
// sends messages itself.
const (
	WebhookEventSubscriptionActivated     = "subscription.activated"
	WebhookEventSubscriptionTrialStarted  = "subscription.trial_started"
	WebhookEventSubscriptionTrialExpired  = "subscription.trial_expired"
	WebhookEventSubscriptionPaused        = "subscription.paused"
	WebhookEventSubscriptionResumed       = "subscription.resumed"
	WebhookEventSubscriptionSuspended     = "subscription.suspended"
	WebhookEventSubscriptionPaymentFailed = "subscription.payment_failed"
	WebhookEventSubscriptionCancelled     = "subscription.cancelled"
	WebhookEventSubscriptionExpired       = "subscription.expired"
	WebhookEventSubscriptionReactivated   = "subscription.reactivated"
	WebhookEventSubscriptionPlanChanged   = "subscription.plan_changed"
)

// WebhookEvent is the envelope published to the notification sink.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SubscriptionTransitionPayload is the payload for all transition events.
type SubscriptionTransitionPayload struct {
	SubscriptionID string              `json:"subscription_id"`
	FromStatus     *SubscriptionStatus `json:"from_status"`
	ToStatus       SubscriptionStatus  `json:"to_status"`
	Reason         string              `json:"reason"`
	Actor          string              `json:"actor,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

// WebhookEventNameForTransition maps a committed transition to the event name
// the notification sink receives. Arriving at Active is reported as resumed or
// reactivated when the source status disambiguates it.
func WebhookEventNameForTransition(from *SubscriptionStatus, to SubscriptionStatus) string {
	switch to {
	case SubscriptionStatusActive:
		if from != nil {
			switch *from {
			case SubscriptionStatusPaused:
				return WebhookEventSubscriptionResumed
			case SubscriptionStatusExpired:
				return WebhookEventSubscriptionReactivated
			}
		}
		return WebhookEventSubscriptionActivated
	case SubscriptionStatusTrialActive:
		return WebhookEventSubscriptionTrialStarted
	case SubscriptionStatusTrialExpired:
		return WebhookEventSubscriptionTrialExpired
	case SubscriptionStatusPaused:
		return WebhookEventSubscriptionPaused
	case SubscriptionStatusSuspended:
		return WebhookEventSubscriptionSuspended
	case SubscriptionStatusPaymentFailed:
		return WebhookEventSubscriptionPaymentFailed
	case SubscriptionStatusCancelled:
		return WebhookEventSubscriptionCancelled
	case SubscriptionStatusExpired:
		return WebhookEventSubscriptionExpired
	default:
		return "subscription.updated"
	}
}
