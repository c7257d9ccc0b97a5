package paypal

import (
	"fmt"
	"net/http"
)

type SubscriberInfo struct {
	Email    string
	FullName string
}

type CreateResult struct {
	SubscriptionID string
	Status         string
	ApprovalURL    string
}

type RevisionResult struct {
	PlanID      string
	Status      string
	ApprovalURL string
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

func approvalLink(links []link) string {
	for _, l := range links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

// CreateSubscription registers a new subscription on the given provider plan.
// The returned approval URL must be visited by the subscriber to authorize
// the recurring payment.
func (c *Client) CreateSubscription(planID string, info SubscriberInfo) (*CreateResult, error) {
	payload := map[string]interface{}{
		"plan_id": planID,
		"subscriber": map[string]interface{}{
			"name":          map[string]string{"given_name": info.FullName},
			"email_address": info.Email,
		},
		"application_context": map[string]string{
			"return_url": c.cfg.ReturnURL,
			"cancel_url": c.cfg.CancelURL,
		},
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []link `json:"links"`
	}
	if err := c.do(http.MethodPost, "/v1/billing/subscriptions", payload, &resp); err != nil {
		return nil, err
	}

	return &CreateResult{
		SubscriptionID: resp.ID,
		Status:         resp.Status,
		ApprovalURL:    approvalLink(resp.Links),
	}, nil
}

// ReviseSubscription moves an existing subscription onto a new provider plan.
// PayPal owns the proration math; nothing is recomputed locally.
func (c *Client) ReviseSubscription(subscriptionID, newPlanID string) (*RevisionResult, error) {
	payload := map[string]string{"plan_id": newPlanID}

	var resp struct {
		PlanID string `json:"plan_id"`
		Status string `json:"status"`
		Links  []link `json:"links"`
	}
	path := fmt.Sprintf("/v1/billing/subscriptions/%s/revise", subscriptionID)
	if err := c.do(http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}

	return &RevisionResult{
		PlanID:      resp.PlanID,
		Status:      resp.Status,
		ApprovalURL: approvalLink(resp.Links),
	}, nil
}

// CancelSubscription cancels on the provider side. PayPal answers 204 with an
// empty body on success.
func (c *Client) CancelSubscription(subscriptionID, reason string) error {
	payload := map[string]string{"reason": reason}
	path := fmt.Sprintf("/v1/billing/subscriptions/%s/cancel", subscriptionID)
	return c.do(http.MethodPost, path, payload, nil)
}
