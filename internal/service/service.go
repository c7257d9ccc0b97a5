// Package service holds the subscription and metering core. Each service is
// constructed with explicit dependencies so the billing provider and the
// stores can be faked in tests.
package service

import (
	"errors"
	"time"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/paypal"
)

var (
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrAlreadySubscribed    = errors.New("user already has an active subscription")
	ErrUnknownPlan          = errors.New("unknown or inactive plan")
	ErrInvalidBillingPeriod = errors.New("invalid billing period")
	ErrNoOpChange           = errors.New("subscription is already on the requested plan and period")
	ErrPlanNotProvisioned   = errors.New("plan is not provisioned with the billing provider")

	// ErrDuplicateEvent is returned by the subscription store when the
	// webhook event row already exists; the caller treats it as a no-op.
	ErrDuplicateEvent = errors.New("webhook event already processed")
)

// BillingGateway is the provider surface the services need. *paypal.Client
// satisfies it.
type BillingGateway interface {
	CreateSubscription(planID string, info paypal.SubscriberInfo) (*paypal.CreateResult, error)
	ReviseSubscription(subscriptionID, newPlanID string) (*paypal.RevisionResult, error)
	CancelSubscription(subscriptionID, reason string) error
}

type PlanCatalog interface {
	BySlug(slug string) (*model.Plan, error)
	ByID(id uint) (*model.Plan, error)
}

type UserStore interface {
	ByID(id uint) (*model.User, error)
}

type SubscriptionStore interface {
	ActiveByUser(userID uint) (*model.Subscription, error)
	// CurrentByUser returns the user's latest subscription including a
	// canceled one; the caller decides with Usable whether the paid period
	// still grants access.
	CurrentByUser(userID uint) (*model.Subscription, error)
	ByProviderID(providerSubID string) (*model.Subscription, error)
	// CreateWithLedger inserts the subscription and its opening ledger entry
	// in one transaction.
	CreateWithLedger(sub *model.Subscription, entry *model.LedgerEntry) error
	// UpdateWithLedger persists the subscription, the ledger entry and the
	// processed-event record (both optional) in one transaction. It returns
	// ErrDuplicateEvent without writing anything when ev was seen before.
	UpdateWithLedger(sub *model.Subscription, entry *model.LedgerEntry, ev *model.ProcessedWebhookEvent) error
	LapsedBefore(cutoff time.Time) ([]model.Subscription, error)
}

type UsageStore interface {
	Append(rec *model.UsageRecord) error
	SumTokens(userID uint, period string) (int64, error)
}

type AlertStore interface {
	// InsertUnique creates the alert unless its dedup key already exists.
	InsertUnique(alert *model.UsageAlert) (bool, error)
	ExistsSince(userID uint, typ model.AlertType, since time.Time) (bool, error)
}

type EventStore interface {
	// MarkProcessed records a webhook event id; false means it was already
	// recorded.
	MarkProcessed(ev *model.ProcessedWebhookEvent) (bool, error)
}

// Notifier sends transactional email. Every call is best-effort: services
// dispatch in a goroutine and only log failures.
type Notifier interface {
	SendPlanChangedEmail(email, name, planName string, period model.BillingPeriod, price float64) error
	SendPaymentFailedEmail(email, name string) error
	SendSubscriptionCancelledEmail(email, name, planName string, endsAt time.Time) error
	SendSubscriptionExpiredEmail(email, name string) error
	SendUsageAlertEmail(email, name string, alertType model.AlertType, percent float64, used, limit int64) error
}
