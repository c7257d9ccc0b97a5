package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ledger event types. PlanChangeCoordinator writes plan_changed and
// subscription_started/canceled; the webhook processor and the
// reconciliation sweep append their own rows tagged with the source event.
const (
	LedgerPlanChanged           = "plan_changed"
	LedgerSubscriptionStarted   = "subscription_started"
	LedgerSubscriptionActivated = "subscription_activated"
	LedgerSubscriptionUpdated   = "subscription_updated"
	LedgerSubscriptionCanceled  = "subscription_canceled"
	LedgerSubscriptionSuspended = "subscription_suspended"
	LedgerSubscriptionExpired   = "subscription_expired"
	LedgerPaymentCompleted      = "payment_completed"
	LedgerPaymentFailed         = "payment_failed"
)

// LedgerEntry is the append-only payment and plan-change history. Rows are
// never mutated after creation.
type LedgerEntry struct {
	gorm.Model
	UserID         uint           `json:"user_id" gorm:"index;not null"`
	SubscriptionID uint           `json:"subscription_id"`
	PayPalTxnID    string         `json:"paypal_txn_id" gorm:"column:paypal_txn_id"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency" gorm:"default:'USD'"`
	Status         string         `json:"status"`
	EventType      string         `json:"event_type" gorm:"not null"`
	PlanSnapshot   datatypes.JSON `json:"plan_snapshot"`
}
