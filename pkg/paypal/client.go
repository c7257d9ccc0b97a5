package paypal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const SandboxBaseURL = "https://api-m.sandbox.paypal.com"

type Config struct {
	BaseURL   string
	ClientID  string
	Secret    string
	WebhookID string
	ReturnURL string
	CancelURL string
}

// Client is a thin wrapper over the PayPal REST API. It is constructed once
// and injected into the services that need it; there is no package-level
// state. Calls are synchronous and are never retried here — retry policy
// belongs to the caller.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	return &Client{
		cfg: cfg,
		// Bir timeout "başarısız" demek değildir; nihai durum webhook veya
		// mutabakat taramasından öğrenilir.
		http: &http.Client{Timeout: 20 * time.Second},
	}
}

// APIError carries a provider response verbatim to the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.Status, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate exchanges client credentials for a short-lived access token.
// Tokens are fetched per call and never cached.
func (c *Client) authenticate() (string, error) {
	req, err := http.NewRequest(http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("paypal: token decode: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("paypal: empty access token")
	}
	return token.AccessToken, nil
}

// do authenticates, issues one API call and decodes the response into out
// (when non-nil). Mutating calls carry a PayPal-Request-Id so a blind retry
// by a caller cannot double-apply on the provider side.
func (c *Client) do(method, path string, payload, out interface{}) error {
	token, err := c.authenticate()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set("PayPal-Request-Id", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("paypal: decode %s: %w", path, err)
		}
	}
	return nil
}
