package domain

// Gateway event types the reconciler acts on. Anything else is acknowledged
// and ignored.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentCanceled  = "payment_intent.canceled"
	EventChargeRefunded   = "charge.refunded"
)

// WebhookEvent is the verified, minimally-parsed form of a gateway delivery.
// IntentID is the gateway payment-intent id the event refers to: the object id
// for payment_intent events, the charge's payment_intent for refund events.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
}

// NotificationKind selects the outbound message template.
type NotificationKind string

const (
	NotificationPaymentConfirmed NotificationKind = "payment_confirmed"
	NotificationPaymentCanceled  NotificationKind = "payment_canceled"
	NotificationPaymentRefunded  NotificationKind = "payment_refunded"
)
