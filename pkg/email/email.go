// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"copydesk_backend/internal/model"
)

type EmailService struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type PlanChangedData struct {
	Name     string
	PlanName string
	Period   string
	Price    float64
}

type PaymentFailedData struct {
	Name string
}

type SubscriptionCancelledData struct {
	Name     string
	PlanName string
	EndsAt   time.Time
}

type SubscriptionExpiredData struct {
	Name string
}

type UsageAlertData struct {
	Name      string
	AlertType string
	Percent   float64
	Used      int64
	Limit     int64
}

type ExpiryWarningData struct {
	Name     string
	PlanName string
	DaysLeft int
	EndsAt   time.Time
}

func NewEmailService(apiKey string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      "CopyDesk <noreply@copydesk.io>",
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("Resend API error: Status: %d, Body: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	return nil
}

// Email sending methods
func (s *EmailService) SendWelcomeEmail(email, name string) error {
	data := WelcomeEmailData{Name: name}
	return s.sendTemplateEmail(email, "Welcome to CopyDesk! 🎉", "welcome.html", data)
}

func (s *EmailService) SendPlanChangedEmail(email, name, planName string, period model.BillingPeriod, price float64) error {
	data := PlanChangedData{
		Name:     name,
		PlanName: planName,
		Period:   string(period),
		Price:    price,
	}
	return s.sendTemplateEmail(email, fmt.Sprintf("You're Now on the %s Plan ✨", planName), "plan_changed.html", data)
}

func (s *EmailService) SendPaymentFailedEmail(email, name string) error {
	data := PaymentFailedData{Name: name}
	return s.sendTemplateEmail(email, "Payment Failed — Please Update Your Billing Info ⚠️", "payment_failed.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, name, planName string, endsAt time.Time) error {
	data := SubscriptionCancelledData{
		Name:     name,
		PlanName: planName,
		EndsAt:   endsAt,
	}
	return s.sendTemplateEmail(email, "Your Subscription Has Been Cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendSubscriptionExpiredEmail(email, name string) error {
	data := SubscriptionExpiredData{Name: name}
	return s.sendTemplateEmail(email, "Your Subscription Has Expired", "subscription_expired.html", data)
}

func (s *EmailService) SendUsageAlertEmail(email, name string, alertType model.AlertType, percent float64, used, limit int64) error {
	data := UsageAlertData{
		Name:      name,
		AlertType: string(alertType),
		Percent:   percent,
		Used:      used,
		Limit:     limit,
	}

	subject := fmt.Sprintf("You've Used %.0f%% of Your Monthly Tokens 📊", percent)
	if alertType == model.AlertLimitExceeded {
		subject = "Monthly Token Limit Reached 🚫"
	}
	return s.sendTemplateEmail(email, subject, "usage_alert.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(email, name, planName string, endsAt time.Time, daysLeft int) error {
	data := ExpiryWarningData{
		Name:     name,
		PlanName: planName,
		DaysLeft: daysLeft,
		EndsAt:   endsAt,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Your Subscription Ends in %d Days ⚠️", daysLeft),
		"subscription_expiry_warning.html",
		data,
	)
}
