package paypal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer serves the oauth token endpoint plus the given API handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "TEST-TOKEN",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:   srv.URL,
		ClientID:  "client-id",
		Secret:    "client-secret",
		WebhookID: "WH-TEST",
		ReturnURL: "https://app.copydesk.io/billing/return",
		CancelURL: "https://app.copydesk.io/billing/cancel",
	})
	return client, srv, &tokenCalls
}

func TestCreateSubscription(t *testing.T) {
	client, _, tokenCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/billing/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer TEST-TOKEN", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("PayPal-Request-Id"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "P-PRO-M", payload["plan_id"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{
			"id": "I-ABC123",
			"status": "APPROVAL_PENDING",
			"links": [
				{"href": "https://api.sandbox.paypal.com/v1/billing/subscriptions/I-ABC123", "rel": "self"},
				{"href": "https://www.sandbox.paypal.com/webapps/billing/subscriptions?ba_token=BA-1", "rel": "approve"}
			]
		}`)
	})

	result, err := client.CreateSubscription("P-PRO-M", SubscriberInfo{
		Email:    "ada@example.com",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)

	assert.Equal(t, "I-ABC123", result.SubscriptionID)
	assert.Equal(t, "APPROVAL_PENDING", result.Status)
	assert.Equal(t, "https://www.sandbox.paypal.com/webapps/billing/subscriptions?ba_token=BA-1", result.ApprovalURL)
	assert.Equal(t, 1, *tokenCalls)
}

func TestTokenIsFetchedPerCall(t *testing.T) {
	client, _, tokenCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"plan_id": "P-PRO-M", "status": "ACTIVE"}`)
	})

	_, err := client.ReviseSubscription("I-ABC123", "P-PRO-M")
	require.NoError(t, err)
	_, err = client.ReviseSubscription("I-ABC123", "P-PRO-Y")
	require.NoError(t, err)

	assert.Equal(t, 2, *tokenCalls)
}

func TestReviseSubscription(t *testing.T) {
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/billing/subscriptions/I-ABC123/revise", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "P-PRO-Y", payload["plan_id"])

		fmt.Fprint(w, `{"plan_id": "P-PRO-Y", "status": "ACTIVE", "links": []}`)
	})

	result, err := client.ReviseSubscription("I-ABC123", "P-PRO-Y")
	require.NoError(t, err)
	assert.Equal(t, "P-PRO-Y", result.PlanID)
	assert.Equal(t, "ACTIVE", result.Status)
}

func TestCancelSubscription(t *testing.T) {
	var gotReason string
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/billing/subscriptions/I-ABC123/cancel", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotReason = payload["reason"]

		// PayPal 204 ve boş gövde döner.
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.CancelSubscription("I-ABC123", "Customer requested cancellation")
	require.NoError(t, err)
	assert.Equal(t, "Customer requested cancellation", gotReason)
}

func TestProviderErrorIsReturnedVerbatim(t *testing.T) {
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"name":"UNPROCESSABLE_ENTITY","message":"plan is not active"}`)
	})

	_, err := client.ReviseSubscription("I-ABC123", "P-DEAD")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "plan is not active")
}

func TestAuthenticationFailure(t *testing.T) {
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be reached without a token")
	})
	client.cfg.Secret = "wrong"

	_, err := client.CreateSubscription("P-PRO-M", SubscriberInfo{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestVerifyWebhookSignature(t *testing.T) {
	var gotPayload map[string]interface{}
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/notification/verify-webhook-signature", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"verification_status": "SUCCESS"}`)
	})

	headers := make(http.Header)
	headers.Set("Paypal-Transmission-Id", "tx-1")
	headers.Set("Paypal-Transmission-Sig", "sig-1")
	headers.Set("Paypal-Transmission-Time", "2026-08-15T10:00:00Z")
	headers.Set("Paypal-Cert-Url", "https://api.paypal.com/cert.pem")
	headers.Set("Paypal-Auth-Algo", "SHA256withRSA")

	ok, err := client.VerifyWebhookSignature(headers, []byte(`{"id":"WH-EVT-1"}`))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "WH-TEST", gotPayload["webhook_id"])
	assert.Equal(t, "tx-1", gotPayload["transmission_id"])
	assert.Equal(t, map[string]interface{}{"id": "WH-EVT-1"}, gotPayload["webhook_event"])
}

func TestVerifyWebhookSignatureFailure(t *testing.T) {
	client, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"verification_status": "FAILURE"}`)
	})

	ok, err := client.VerifyWebhookSignature(make(http.Header), []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, ok)
}
