package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/paypal"
)

func newTestProcessor() (*WebhookEventProcessor, *fakeSubStore, *fakeEventStore) {
	subs := newFakeSubStore()
	events := newFakeEventStore()
	plans := &fakePlanCatalog{plans: testPlans()}
	users := &fakeUserStore{users: map[uint]model.User{
		1: {Model: gorm.Model{ID: 1}, Email: "ada@example.com", Name: "Ada Lovelace"},
	}}
	return NewWebhookEventProcessor(subs, plans, users, events, nil), subs, events
}

func seedSub(subs *fakeSubStore, status model.SubscriptionStatus, periodEnd time.Time) uint {
	return subs.put(model.Subscription{
		UserID:           1,
		PlanID:           1,
		PayPalSubID:      "I-SUB1",
		Status:           status,
		BillingPeriod:    model.PeriodMonthly,
		CurrentPeriodEnd: periodEnd,
	})
}

func subEvent(id string, typ paypal.EventType) *paypal.Event {
	return &paypal.Event{
		ID:             id,
		Type:           typ,
		RawType:        string(typ),
		SubscriptionID: "I-SUB1",
		Raw:            []byte(`{}`),
	}
}

func TestProcessPaymentFailedMovesToPastDue(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusActive, time.Now().AddDate(0, 1, 0))

	err := proc.Process(subEvent("EVT-1", paypal.EventPaymentFailed))
	require.NoError(t, err)

	assert.Equal(t, model.SubStatusPastDue, subs.subs[id].Status)
	require.Len(t, subs.ledger, 1)
	assert.Equal(t, model.LedgerPaymentFailed, subs.ledger[0].EventType)
	assert.Equal(t, "failed", subs.ledger[0].Status)
}

func TestProcessDuplicateEventAppliesOnce(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusActive, time.Now().AddDate(0, 1, 0))

	require.NoError(t, proc.Process(subEvent("EVT-1", paypal.EventPaymentFailed)))

	// Redelivery with the same event id: no error, no second ledger row.
	require.NoError(t, proc.Process(subEvent("EVT-1", paypal.EventPaymentFailed)))

	assert.Equal(t, model.SubStatusPastDue, subs.subs[id].Status)
	assert.Len(t, subs.ledger, 1)
}

func TestProcessPaymentRecoversPastDue(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusPastDue, time.Now())

	newPeriodEnd := time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Second)
	ev := &paypal.Event{
		ID:             "EVT-2",
		Type:           paypal.EventPaymentCompleted,
		RawType:        string(paypal.EventPaymentCompleted),
		SubscriptionID: "I-SUB1",
		TxnID:          "TXN-1",
		Amount:         19,
		Currency:       "USD",
		PeriodEnd:      newPeriodEnd,
		Raw:            []byte(`{}`),
	}
	require.NoError(t, proc.Process(ev))

	stored := subs.subs[id]
	assert.Equal(t, model.SubStatusActive, stored.Status)
	assert.True(t, stored.CurrentPeriodEnd.Equal(newPeriodEnd))

	require.Len(t, subs.ledger, 1)
	assert.Equal(t, model.LedgerPaymentCompleted, subs.ledger[0].EventType)
	assert.Equal(t, 19.0, subs.ledger[0].Amount)
	assert.Equal(t, "TXN-1", subs.ledger[0].PayPalTxnID)
}

func TestProcessOutOfOrderPaymentOnCanceledSub(t *testing.T) {
	proc, subs, events := newTestProcessor()
	id := seedSub(subs, model.SubStatusCanceled, time.Now().AddDate(0, 0, 10))

	ev := subEvent("EVT-3", paypal.EventPaymentCompleted)
	require.NoError(t, proc.Process(ev))

	// Status untouched, no ledger row, but the event id is still recorded.
	assert.Equal(t, model.SubStatusCanceled, subs.subs[id].Status)
	assert.Empty(t, subs.ledger)
	assert.True(t, events.seen["EVT-3"])
}

func TestProcessSuspendedRequiresPastDue(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusActive, time.Now().AddDate(0, 1, 0))

	require.NoError(t, proc.Process(subEvent("EVT-4", paypal.EventSubSuspended)))
	assert.Equal(t, model.SubStatusActive, subs.subs[id].Status)
	assert.Empty(t, subs.ledger)

	require.NoError(t, proc.Process(subEvent("EVT-5", paypal.EventPaymentFailed)))
	require.NoError(t, proc.Process(subEvent("EVT-6", paypal.EventSubSuspended)))
	assert.Equal(t, model.SubStatusSuspended, subs.subs[id].Status)
}

func TestProcessCancelledEvent(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusActive, time.Now().AddDate(0, 1, 0))

	require.NoError(t, proc.Process(subEvent("EVT-7", paypal.EventSubCancelled)))

	stored := subs.subs[id]
	assert.Equal(t, model.SubStatusCanceled, stored.Status)
	assert.True(t, stored.CancelAtPeriodEnd)
	require.NotNil(t, stored.CanceledAt)
}

func TestProcessExpiredIsTerminal(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusCanceled, time.Now())

	require.NoError(t, proc.Process(subEvent("EVT-8", paypal.EventSubExpired)))
	assert.Equal(t, model.SubStatusExpired, subs.subs[id].Status)
	require.Len(t, subs.ledger, 1)

	// A second expiry for an already expired subscription is a no-op.
	require.NoError(t, proc.Process(subEvent("EVT-9", paypal.EventSubExpired)))
	assert.Len(t, subs.ledger, 1)
}

func TestProcessUnknownSubscriptionDropped(t *testing.T) {
	proc, subs, events := newTestProcessor()

	ev := subEvent("EVT-10", paypal.EventPaymentFailed)
	ev.SubscriptionID = "I-UNKNOWN"
	require.NoError(t, proc.Process(ev))

	assert.Empty(t, subs.ledger)
	assert.True(t, events.seen["EVT-10"])
}

func TestProcessIgnoredEventType(t *testing.T) {
	proc, subs, events := newTestProcessor()
	seedSub(subs, model.SubStatusActive, time.Now().AddDate(0, 1, 0))

	ev := &paypal.Event{
		ID:      "EVT-11",
		Type:    paypal.EventIgnored,
		RawType: "CUSTOMER.DISPUTE.CREATED",
		Raw:     []byte(`{}`),
	}
	require.NoError(t, proc.Process(ev))
	assert.Empty(t, subs.ledger)
	assert.True(t, events.seen["EVT-11"])
}

func TestProcessActivatedRefreshesPeriodEnd(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	id := seedSub(subs, model.SubStatusActive, time.Now())

	providerEnd := time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Second)
	ev := subEvent("EVT-12", paypal.EventSubActivated)
	ev.PeriodEnd = providerEnd
	require.NoError(t, proc.Process(ev))

	assert.True(t, subs.subs[id].CurrentPeriodEnd.Equal(providerEnd))
	require.Len(t, subs.ledger, 1)
	assert.Equal(t, model.LedgerSubscriptionActivated, subs.ledger[0].EventType)
}

func TestReconcileExpiredSweepsLapsedOnly(t *testing.T) {
	proc, subs, _ := newTestProcessor()
	now := time.Now()

	lapsed := subs.put(model.Subscription{
		UserID: 1, PlanID: 1, PayPalSubID: "I-LAPSED",
		Status: model.SubStatusCanceled, CurrentPeriodEnd: now.AddDate(0, 0, -1),
	})
	paidUp := subs.put(model.Subscription{
		UserID: 1, PlanID: 1, PayPalSubID: "I-PAIDUP",
		Status: model.SubStatusCanceled, CurrentPeriodEnd: now.AddDate(0, 0, 10),
	})
	suspended := subs.put(model.Subscription{
		UserID: 1, PlanID: 1, PayPalSubID: "I-SUSP",
		Status: model.SubStatusSuspended, CurrentPeriodEnd: now.AddDate(0, 0, -3),
	})

	count, err := proc.ReconcileExpired(now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, model.SubStatusExpired, subs.subs[lapsed].Status)
	assert.Equal(t, model.SubStatusExpired, subs.subs[suspended].Status)
	assert.Equal(t, model.SubStatusCanceled, subs.subs[paidUp].Status)
	assert.Len(t, subs.ledger, 2)
}
