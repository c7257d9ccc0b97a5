package paypal

import (
	"encoding/json"
	"net/http"
)

// VerifyWebhookSignature asks PayPal whether a webhook delivery is authentic.
// The transmission headers come with the incoming request.
func (c *Client) VerifyWebhookSignature(headers http.Header, body []byte) (bool, error) {
	payload := map[string]interface{}{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        c.cfg.WebhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var resp struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(http.MethodPost, "/v1/notification/verify-webhook-signature", payload, &resp); err != nil {
		return false, err
	}
	return resp.VerificationStatus == "SUCCESS", nil
}
