package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationStatus tracks delivery of an outbox row.
type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "queued"
	NotificationStatusSent   NotificationStatus = "sent"
)

// Notification is a durable request to tell a user about a payment state
// change. (PaymentID, Kind) is the idempotency key: redelivered webhooks
// enqueue at most one row per payment and outcome.
type Notification struct {
	ID        int64
	PaymentID int64
	Kind      NotificationKind
	Email     string
	Amount    decimal.Decimal
	Status    NotificationStatus
	CreatedAt time.Time
	SentAt    *time.Time
}
