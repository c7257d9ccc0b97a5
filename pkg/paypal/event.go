package paypal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type EventType string

// Webhook event types the processor understands. Anything else decodes to
// EventIgnored instead of flowing through as a raw string.
const (
	EventPaymentCompleted EventType = "PAYMENT.SALE.COMPLETED"
	EventPaymentFailed    EventType = "BILLING.SUBSCRIPTION.PAYMENT.FAILED"
	EventSubActivated     EventType = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubUpdated       EventType = "BILLING.SUBSCRIPTION.UPDATED"
	EventSubCancelled     EventType = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubSuspended     EventType = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventSubExpired       EventType = "BILLING.SUBSCRIPTION.EXPIRED"
	EventIgnored          EventType = "IGNORED"
)

// Event is the decoded form of a webhook delivery. RawType keeps the
// provider's original event_type string for ignored events.
type Event struct {
	ID             string
	Type           EventType
	RawType        string
	SubscriptionID string
	TxnID          string
	Amount         float64
	Currency       string
	PeriodEnd      time.Time
	Raw            json.RawMessage
}

// ParseEvent decodes a webhook payload into the closed event union.
func ParseEvent(body []byte) (*Event, error) {
	var envelope struct {
		ID        string          `json:"id"`
		EventType string          `json:"event_type"`
		Resource  json.RawMessage `json:"resource"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("paypal: event decode: %w", err)
	}
	if envelope.ID == "" {
		return nil, fmt.Errorf("paypal: event without id")
	}

	ev := &Event{
		ID:      envelope.ID,
		RawType: envelope.EventType,
		Raw:     json.RawMessage(body),
	}

	switch EventType(envelope.EventType) {
	case EventPaymentCompleted:
		// Ödeme olaylarında resource bir satıştır; abonelik id'si
		// billing_agreement_id alanında gelir.
		var sale struct {
			ID                 string `json:"id"`
			BillingAgreementID string `json:"billing_agreement_id"`
			Amount             struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"amount"`
		}
		if err := json.Unmarshal(envelope.Resource, &sale); err != nil {
			return nil, fmt.Errorf("paypal: sale decode: %w", err)
		}
		ev.Type = EventPaymentCompleted
		ev.SubscriptionID = sale.BillingAgreementID
		ev.TxnID = sale.ID
		ev.Currency = sale.Amount.Currency
		if sale.Amount.Total != "" {
			amount, err := strconv.ParseFloat(sale.Amount.Total, 64)
			if err != nil {
				return nil, fmt.Errorf("paypal: sale amount %q: %w", sale.Amount.Total, err)
			}
			ev.Amount = amount
		}

	case EventPaymentFailed, EventSubActivated, EventSubUpdated,
		EventSubCancelled, EventSubSuspended, EventSubExpired:
		var sub struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			BillingInfo struct {
				NextBillingTime string `json:"next_billing_time"`
			} `json:"billing_info"`
		}
		if err := json.Unmarshal(envelope.Resource, &sub); err != nil {
			return nil, fmt.Errorf("paypal: subscription decode: %w", err)
		}
		ev.Type = EventType(envelope.EventType)
		ev.SubscriptionID = sub.ID
		if sub.BillingInfo.NextBillingTime != "" {
			t, err := time.Parse(time.RFC3339, sub.BillingInfo.NextBillingTime)
			if err == nil {
				ev.PeriodEnd = t
			}
		}

	default:
		ev.Type = EventIgnored
	}

	return ev, nil
}
