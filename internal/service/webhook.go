package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/paypal"
)

// WebhookEventProcessor applies billing-provider events to the subscription
// store. It is idempotent over event ids and tolerates duplicate and
// out-of-order delivery: a transition only applies when it is consistent
// with the currently recorded status.
type WebhookEventProcessor struct {
	subs     SubscriptionStore
	plans    PlanCatalog
	users    UserStore
	events   EventStore
	notifier Notifier
}

func NewWebhookEventProcessor(subs SubscriptionStore, plans PlanCatalog, users UserStore, events EventStore, notifier Notifier) *WebhookEventProcessor {
	return &WebhookEventProcessor{subs: subs, plans: plans, users: users, events: events, notifier: notifier}
}

// Process applies one decoded webhook event. Returning nil means the event
// was durably recorded or safely deduplicated; the HTTP handler answers 2xx
// only in that case so the provider stops retrying.
func (p *WebhookEventProcessor) Process(ev *paypal.Event) error {
	eventRecord := &model.ProcessedWebhookEvent{
		EventID:   ev.ID,
		EventType: ev.RawType,
		Payload:   []byte(ev.Raw),
	}

	if ev.Type == paypal.EventIgnored {
		log.Printf("Ignoring webhook event %s with unknown type %s", ev.ID, ev.RawType)
		_, err := p.events.MarkProcessed(eventRecord)
		return err
	}

	sub, err := p.subs.ByProviderID(ev.SubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Bilinmeyen abonelik: logla ve düşür, hata değil.
			log.Printf("Dropping webhook event %s for unknown subscription %s", ev.ID, ev.SubscriptionID)
			_, markErr := p.events.MarkProcessed(eventRecord)
			return markErr
		}
		return err
	}

	entry := p.transition(sub, ev)
	if entry == nil {
		// Transition not applicable to the current status; still record the
		// event id so a redelivery stays a no-op.
		log.Printf("Webhook event %s (%s) not applicable to subscription %d in status %s",
			ev.ID, ev.Type, sub.ID, sub.Status)
		_, err := p.events.MarkProcessed(eventRecord)
		return err
	}

	// Event record, subscription update and ledger row commit together; a
	// duplicate delivery that raced us rolls the whole thing back.
	if err := p.subs.UpdateWithLedger(sub, entry, eventRecord); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			log.Printf("Webhook event %s already processed", ev.ID)
			return nil
		}
		return fmt.Errorf("apply webhook event %s: %w", ev.ID, err)
	}

	p.notifyTransition(sub, ev)
	return nil
}

// transition mutates sub in memory according to the event and returns the
// ledger entry to append, or nil when the event does not apply.
func (p *WebhookEventProcessor) transition(sub *model.Subscription, ev *paypal.Event) *model.LedgerEntry {
	entry := &model.LedgerEntry{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PayPalTxnID:    ev.TxnID,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
		Status:         "completed",
	}

	switch ev.Type {
	case paypal.EventPaymentCompleted:
		switch sub.Status {
		case model.SubStatusPastDue:
			sub.Status = model.SubStatusActive
		case model.SubStatusActive:
			// Yenileme ödemesi.
		default:
			return nil
		}
		if !ev.PeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = ev.PeriodEnd
		}
		entry.EventType = model.LedgerPaymentCompleted

	case paypal.EventPaymentFailed:
		if sub.Status != model.SubStatusActive {
			return nil
		}
		sub.Status = model.SubStatusPastDue
		entry.Status = "failed"
		entry.EventType = model.LedgerPaymentFailed

	case paypal.EventSubSuspended:
		// Retry exhaustion on the provider side.
		if sub.Status != model.SubStatusPastDue {
			return nil
		}
		sub.Status = model.SubStatusSuspended
		entry.EventType = model.LedgerSubscriptionSuspended

	case paypal.EventSubCancelled:
		if sub.Status != model.SubStatusActive && sub.Status != model.SubStatusPastDue {
			return nil
		}
		now := time.Now()
		sub.Status = model.SubStatusCanceled
		sub.CancelAtPeriodEnd = true
		sub.CanceledAt = &now
		entry.EventType = model.LedgerSubscriptionCanceled

	case paypal.EventSubExpired:
		if sub.Status == model.SubStatusExpired {
			return nil
		}
		sub.Status = model.SubStatusExpired
		entry.EventType = model.LedgerSubscriptionExpired

	case paypal.EventSubActivated:
		if sub.Status != model.SubStatusActive {
			return nil
		}
		if !ev.PeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = ev.PeriodEnd
		}
		entry.EventType = model.LedgerSubscriptionActivated

	case paypal.EventSubUpdated:
		if sub.Status == model.SubStatusExpired {
			return nil
		}
		if !ev.PeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = ev.PeriodEnd
		}
		entry.EventType = model.LedgerSubscriptionUpdated

	default:
		return nil
	}

	return entry
}

func (p *WebhookEventProcessor) notifyTransition(sub *model.Subscription, ev *paypal.Event) {
	if p.notifier == nil {
		return
	}
	userID := sub.UserID
	switch ev.Type {
	case paypal.EventPaymentFailed:
		go p.sendTo(userID, func(u *model.User) error {
			return p.notifier.SendPaymentFailedEmail(u.Email, u.Name)
		})
	case paypal.EventSubCancelled:
		endsAt := sub.CurrentPeriodEnd
		planName := p.planName(sub.PlanID)
		go p.sendTo(userID, func(u *model.User) error {
			return p.notifier.SendSubscriptionCancelledEmail(u.Email, u.Name, planName, endsAt)
		})
	case paypal.EventSubExpired:
		go p.sendTo(userID, func(u *model.User) error {
			return p.notifier.SendSubscriptionExpiredEmail(u.Email, u.Name)
		})
	}
}

func (p *WebhookEventProcessor) sendTo(userID uint, send func(u *model.User) error) {
	user, err := p.users.ByID(userID)
	if err != nil {
		log.Printf("Could not load user %d for notification: %v", userID, err)
		return
	}
	if err := send(user); err != nil {
		log.Printf("Could not send notification to %s: %v", user.Email, err)
	}
}

func (p *WebhookEventProcessor) planName(planID uint) string {
	plan, err := p.plans.ByID(planID)
	if err != nil {
		return ""
	}
	return plan.Name
}

// ReconcileExpired sweeps canceled and suspended subscriptions whose paid
// period has lapsed and marks them expired. The provider does not guarantee
// an EXPIRED event for every subscription, so the sweep is the safety net.
func (p *WebhookEventProcessor) ReconcileExpired(now time.Time) (int, error) {
	lapsed, err := p.subs.LapsedBefore(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range lapsed {
		sub := &lapsed[i]
		sub.Status = model.SubStatusExpired
		entry := &model.LedgerEntry{
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			Status:         "completed",
			EventType:      model.LedgerSubscriptionExpired,
		}
		if err := p.subs.UpdateWithLedger(sub, entry, nil); err != nil {
			log.Printf("Could not expire subscription %d: %v", sub.ID, err)
			continue
		}
		expired++

		if p.notifier != nil {
			go p.sendTo(sub.UserID, func(u *model.User) error {
				return p.notifier.SendSubscriptionExpiredEmail(u.Email, u.Name)
			})
		}
	}
	return expired, nil
}
