package controller

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"copydesk_backend/internal/model"
	"copydesk_backend/internal/service"
	"copydesk_backend/pkg/database"
	"copydesk_backend/pkg/paypal"
	"copydesk_backend/pkg/utils/jwt"
)

type CheckoutInput struct {
	PlanSlug      string `json:"plan_slug" validate:"required"`
	BillingPeriod string `json:"billing_period" validate:"required"`
}

type ChangePlanInput struct {
	PlanSlug      string `json:"plan_slug" validate:"required"`
	BillingPeriod string `json:"billing_period" validate:"required"`
}

type CancelInput struct {
	Reason string `json:"reason"`
}

var (
	planChanger      *service.PlanChangeCoordinator
	webhookProcessor *service.WebhookEventProcessor
	billingClient    *paypal.Client
)

func InitSubscriptionController(coordinator *service.PlanChangeCoordinator, processor *service.WebhookEventProcessor, client *paypal.Client) {
	planChanger = coordinator
	webhookProcessor = processor
	billingClient = client
}

func ListPlans(c *fiber.Ctx) error {
	var plans []model.Plan
	if err := database.DB.Where("is_active = ?", true).Order("sort_order asc").Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscription plans",
		})
	}

	return c.JSON(plans)
}

// CreateCheckout creates a provider subscription and returns the approval
// URL the user must visit to authorize the recurring payment.
func CreateCheckout(c *fiber.Ctx) error {
	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	result, err := planChanger.Checkout(claims.UserID, input.PlanSlug, model.BillingPeriod(input.BillingPeriod))
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Subscription created, approval required",
		"subscription_id": result.SubscriptionID,
		"approval_url":    result.ApprovalURL,
	})
}

func ChangePlan(c *fiber.Ctx) error {
	input := new(ChangePlanInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	plan, period, err := planChanger.ChangePlan(claims.UserID, input.PlanSlug, model.BillingPeriod(input.BillingPeriod))
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":        "Plan changed successfully",
		"plan":           plan.Slug,
		"billing_period": period,
	})
}

func CancelSubscription(c *fiber.Ctx) error {
	input := new(CancelInput)
	if err := c.BodyParser(input); err != nil {
		input.Reason = ""
	}
	if input.Reason == "" {
		input.Reason = "Customer requested cancellation"
	}

	claims := c.Locals("user").(*jwt.Claims)

	sub, err := planChanger.Cancel(claims.UserID, input.Reason)
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":        "Subscription cancelled, access continues until period end",
		"current_period": sub.CurrentPeriodEnd,
	})
}

func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	err := database.DB.
		Where("user_id = ? AND status IN ?", claims.UserID,
			[]model.SubscriptionStatus{
				model.SubStatusActive, model.SubStatusPastDue, model.SubStatusCanceled,
			}).
		Order("created_at desc").
		Preload("Plan").
		First(&sub).Error
	if err != nil || !sub.Usable(time.Now()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	return c.JSON(sub)
}

func GetBillingHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var entries []model.LedgerEntry
	err := database.DB.
		Where("user_id = ?", claims.UserID).
		Order("created_at desc").
		Limit(100).
		Find(&entries).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing history",
		})
	}

	return c.JSON(entries)
}

// HandlePayPalWebhook verifies, decodes and applies one provider event. It
// answers 2xx only after the event is durably recorded or deduplicated, so
// PayPal stops redelivering.
func HandlePayPalWebhook(c *fiber.Ctx) error {
	body := c.Body()

	headers := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	ok, err := billingClient.VerifyWebhookSignature(headers, body)
	if err != nil {
		log.Printf("Webhook signature verification error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not verify webhook signature",
		})
	}
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	event, err := paypal.ParseEvent(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	log.Printf("Processing PayPal webhook event %s (%s)", event.ID, event.RawType)

	if err := webhookProcessor.Process(event); err != nil {
		log.Printf("Could not process webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// subscriptionError maps service errors onto HTTP responses. Provider errors
// surface the provider's message verbatim.
func subscriptionError(c *fiber.Ctx, err error) error {
	var apiErr *paypal.APIError
	switch {
	case errors.Is(err, service.ErrNoOpChange):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You are already on this plan and billing period",
		})
	case errors.Is(err, service.ErrInvalidBillingPeriod):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Billing period must be monthly or yearly",
		})
	case errors.Is(err, service.ErrUnknownPlan):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription plan not found",
		})
	case errors.Is(err, service.ErrNoActiveSubscription):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	case errors.Is(err, service.ErrAlreadySubscribed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You already have an active subscription",
		})
	case errors.Is(err, service.ErrPlanNotProvisioned):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "This plan is not available for the selected billing period",
		})
	case errors.As(err, &apiErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": apiErr.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
