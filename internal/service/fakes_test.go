package service

import (
	"time"

	"gorm.io/gorm"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/paypal"
)

type fakeGateway struct {
	createCalls int
	reviseCalls int
	cancelCalls int

	createErr error
	reviseErr error
	cancelErr error

	lastCreatePlanID string
	lastRevisePlanID string
	lastCancelReason string
}

func (g *fakeGateway) CreateSubscription(planID string, info paypal.SubscriberInfo) (*paypal.CreateResult, error) {
	g.createCalls++
	g.lastCreatePlanID = planID
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &paypal.CreateResult{
		SubscriptionID: "I-FAKE123",
		Status:         "APPROVAL_PENDING",
		ApprovalURL:    "https://paypal.test/approve/I-FAKE123",
	}, nil
}

func (g *fakeGateway) ReviseSubscription(subscriptionID, newPlanID string) (*paypal.RevisionResult, error) {
	g.reviseCalls++
	g.lastRevisePlanID = newPlanID
	if g.reviseErr != nil {
		return nil, g.reviseErr
	}
	return &paypal.RevisionResult{PlanID: newPlanID, Status: "ACTIVE"}, nil
}

func (g *fakeGateway) CancelSubscription(subscriptionID, reason string) error {
	g.cancelCalls++
	g.lastCancelReason = reason
	return g.cancelErr
}

type fakeSubStore struct {
	nextID uint
	subs   map[uint]model.Subscription
	ledger []model.LedgerEntry
	events map[string]bool

	createErr error
	updateErr error
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{
		nextID: 1,
		subs:   make(map[uint]model.Subscription),
		events: make(map[string]bool),
	}
}

func (s *fakeSubStore) put(sub model.Subscription) uint {
	if sub.ID == 0 {
		sub.ID = s.nextID
		s.nextID++
	}
	s.subs[sub.ID] = sub
	return sub.ID
}

func (s *fakeSubStore) ActiveByUser(userID uint) (*model.Subscription, error) {
	for _, sub := range s.subs {
		if sub.UserID == userID &&
			(sub.Status == model.SubStatusActive || sub.Status == model.SubStatusPastDue) {
			copied := sub
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeSubStore) CurrentByUser(userID uint) (*model.Subscription, error) {
	var latest *model.Subscription
	for _, sub := range s.subs {
		switch sub.Status {
		case model.SubStatusActive, model.SubStatusPastDue, model.SubStatusCanceled:
		default:
			continue
		}
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.ID > latest.ID {
			copied := sub
			latest = &copied
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (s *fakeSubStore) ByProviderID(providerSubID string) (*model.Subscription, error) {
	for _, sub := range s.subs {
		if sub.PayPalSubID == providerSubID {
			copied := sub
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeSubStore) CreateWithLedger(sub *model.Subscription, entry *model.LedgerEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	sub.ID = s.put(*sub)
	entry.SubscriptionID = sub.ID
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (s *fakeSubStore) UpdateWithLedger(sub *model.Subscription, entry *model.LedgerEntry, ev *model.ProcessedWebhookEvent) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if ev != nil {
		if s.events[ev.EventID] {
			return ErrDuplicateEvent
		}
		s.events[ev.EventID] = true
	}
	s.put(*sub)
	if entry != nil {
		s.ledger = append(s.ledger, *entry)
	}
	return nil
}

func (s *fakeSubStore) LapsedBefore(cutoff time.Time) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, sub := range s.subs {
		if (sub.Status == model.SubStatusCanceled || sub.Status == model.SubStatusSuspended) &&
			sub.CurrentPeriodEnd.Before(cutoff) {
			out = append(out, sub)
		}
	}
	return out, nil
}

type fakePlanCatalog struct {
	plans map[string]model.Plan // by slug
}

func (c *fakePlanCatalog) BySlug(slug string) (*model.Plan, error) {
	plan, ok := c.plans[slug]
	if !ok || !plan.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	copied := plan
	return &copied, nil
}

func (c *fakePlanCatalog) ByID(id uint) (*model.Plan, error) {
	for _, plan := range c.plans {
		if plan.ID == id {
			copied := plan
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeUserStore struct {
	users map[uint]model.User
	err   error
}

func (s *fakeUserStore) ByID(id uint) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := user
	return &copied, nil
}

type fakeUsageStore struct {
	records []model.UsageRecord
	sumErr  error
}

func (s *fakeUsageStore) Append(rec *model.UsageRecord) error {
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakeUsageStore) SumTokens(userID uint, period string) (int64, error) {
	if s.sumErr != nil {
		return 0, s.sumErr
	}
	var total int64
	for _, rec := range s.records {
		if rec.UserID == userID && rec.PeriodMonth == period {
			total += rec.Tokens
		}
	}
	return total, nil
}

type fakeAlertStore struct {
	alerts []model.UsageAlert
	clock  func() time.Time
}

func (s *fakeAlertStore) InsertUnique(alert *model.UsageAlert) (bool, error) {
	for _, a := range s.alerts {
		if a.DedupKey == alert.DedupKey {
			return false, nil
		}
	}
	if s.clock != nil {
		alert.CreatedAt = s.clock()
	}
	s.alerts = append(s.alerts, *alert)
	return true, nil
}

func (s *fakeAlertStore) ExistsSince(userID uint, typ model.AlertType, since time.Time) (bool, error) {
	for _, a := range s.alerts {
		if a.UserID == userID && a.Type == typ && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeEventStore struct {
	seen map[string]bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{seen: make(map[string]bool)}
}

func (s *fakeEventStore) MarkProcessed(ev *model.ProcessedWebhookEvent) (bool, error) {
	if s.seen[ev.EventID] {
		return false, nil
	}
	s.seen[ev.EventID] = true
	return true, nil
}
