package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/paypal"
)

// PlanChangeCoordinator drives the subscription lifecycle operations that the
// user initiates: checkout, plan change and cancellation. The provider call
// always happens first; local state is committed only after the provider
// accepted the request, so a provider failure leaves no partial state.
type PlanChangeCoordinator struct {
	subs     SubscriptionStore
	plans    PlanCatalog
	users    UserStore
	gateway  BillingGateway
	notifier Notifier

	// Aynı kullanıcı için eşzamanlı plan değişiklikleri serileştirilir.
	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

func NewPlanChangeCoordinator(subs SubscriptionStore, plans PlanCatalog, users UserStore, gateway BillingGateway, notifier Notifier) *PlanChangeCoordinator {
	return &PlanChangeCoordinator{
		subs:      subs,
		plans:     plans,
		users:     users,
		gateway:   gateway,
		notifier:  notifier,
		userLocks: make(map[uint]*sync.Mutex),
	}
}

func (c *PlanChangeCoordinator) lockUser(userID uint) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		c.userLocks[userID] = l
	}
	return l
}

// Checkout creates a provider subscription for a user without one. The local
// row is created immediately; the ACTIVATED webhook later confirms the
// period boundaries reported by the provider.
func (c *PlanChangeCoordinator) Checkout(userID uint, planSlug string, period model.BillingPeriod) (*paypal.CreateResult, error) {
	if !period.Valid() {
		return nil, ErrInvalidBillingPeriod
	}

	lock := c.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.subs.ActiveByUser(userID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan, err := c.plans.BySlug(planSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownPlan
		}
		return nil, err
	}

	externalPlanID := plan.ExternalPlanID(period)
	if externalPlanID == "" {
		return nil, ErrPlanNotProvisioned
	}

	user, err := c.users.ByID(userID)
	if err != nil {
		return nil, err
	}

	result, err := c.gateway.CreateSubscription(externalPlanID, paypal.SubscriberInfo{
		Email:    user.Email,
		FullName: user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	sub := &model.Subscription{
		UserID:           userID,
		PlanID:           plan.ID,
		PayPalSubID:      result.SubscriptionID,
		Status:           model.SubStatusActive,
		BillingPeriod:    period,
		CurrentPeriodEnd: firstPeriodEnd(time.Now(), period),
	}
	entry := &model.LedgerEntry{
		UserID:       userID,
		Amount:       plan.PriceFor(period),
		Status:       result.Status,
		EventType:    model.LedgerSubscriptionStarted,
		PlanSnapshot: snapshotPlan(plan),
	}
	// Abonelik satırı ve açılış ledger kaydı tek transaction'da yazılır.
	if err := c.subs.CreateWithLedger(sub, entry); err != nil {
		return nil, err
	}

	return result, nil
}

// ChangePlan moves the user's active subscription to another plan or billing
// period. The provider computes the proration.
func (c *PlanChangeCoordinator) ChangePlan(userID uint, targetSlug string, period model.BillingPeriod) (*model.Plan, model.BillingPeriod, error) {
	if !period.Valid() {
		return nil, "", ErrInvalidBillingPeriod
	}

	lock := c.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	sub, err := c.subs.ActiveByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNoActiveSubscription
		}
		return nil, "", err
	}

	plan, err := c.plans.BySlug(targetSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUnknownPlan
		}
		return nil, "", err
	}

	// Aynı plan + periyot: sağlayıcıya hiç gitme.
	if sub.PlanID == plan.ID && sub.BillingPeriod == period {
		return nil, "", ErrNoOpChange
	}

	externalPlanID := plan.ExternalPlanID(period)
	if externalPlanID == "" {
		return nil, "", ErrPlanNotProvisioned
	}

	if _, err := c.gateway.ReviseSubscription(sub.PayPalSubID, externalPlanID); err != nil {
		// No local mutation on provider failure.
		return nil, "", fmt.Errorf("revise subscription: %w", err)
	}

	sub.PlanID = plan.ID
	sub.BillingPeriod = period
	entry := &model.LedgerEntry{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Amount:         plan.PriceFor(period),
		Status:         "completed",
		EventType:      model.LedgerPlanChanged,
		PlanSnapshot:   snapshotPlan(plan),
	}
	if err := c.subs.UpdateWithLedger(sub, entry, nil); err != nil {
		return nil, "", err
	}

	c.notifyAsync(userID, func(u *model.User) error {
		return c.notifier.SendPlanChangedEmail(u.Email, u.Name, plan.Name, period, plan.PriceFor(period))
	})

	return plan, period, nil
}

// Cancel cancels the active subscription on the provider and marks the local
// row canceled at period end. Access continues until CurrentPeriodEnd.
func (c *PlanChangeCoordinator) Cancel(userID uint, reason string) (*model.Subscription, error) {
	lock := c.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	sub, err := c.subs.ActiveByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	if err := c.gateway.CancelSubscription(sub.PayPalSubID, reason); err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}

	now := time.Now()
	sub.Status = model.SubStatusCanceled
	sub.CancelAtPeriodEnd = true
	sub.CanceledAt = &now

	plan, planErr := c.plans.ByID(sub.PlanID)
	entry := &model.LedgerEntry{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Status:         "completed",
		EventType:      model.LedgerSubscriptionCanceled,
	}
	if planErr == nil {
		entry.PlanSnapshot = snapshotPlan(plan)
	}
	if err := c.subs.UpdateWithLedger(sub, entry, nil); err != nil {
		return nil, err
	}

	if planErr == nil {
		c.notifyAsync(userID, func(u *model.User) error {
			return c.notifier.SendSubscriptionCancelledEmail(u.Email, u.Name, plan.Name, sub.CurrentPeriodEnd)
		})
	}

	return sub, nil
}

// notifyAsync is fire-and-forget: a notification failure never fails the
// operation that triggered it.
func (c *PlanChangeCoordinator) notifyAsync(userID uint, send func(u *model.User) error) {
	if c.notifier == nil {
		return
	}
	go func() {
		user, err := c.users.ByID(userID)
		if err != nil {
			log.Printf("Could not load user %d for notification: %v", userID, err)
			return
		}
		if err := send(user); err != nil {
			log.Printf("Could not send notification to %s: %v", user.Email, err)
		}
	}()
}

func firstPeriodEnd(from time.Time, period model.BillingPeriod) time.Time {
	if period == model.PeriodYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

func snapshotPlan(plan *model.Plan) []byte {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil
	}
	return data
}
