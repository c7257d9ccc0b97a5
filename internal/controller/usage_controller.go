package controller

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"copydesk_backend/internal/model"
	"copydesk_backend/internal/service"
	"copydesk_backend/internal/store"
	"copydesk_backend/pkg/database"
	"copydesk_backend/pkg/utils/jwt"
)

type AuthorizeInput struct {
	EstimatedTokens int64 `json:"estimated_tokens"`
}

type RecordUsageInput struct {
	OperationID  string  `json:"operation_id"`
	Tokens       int64   `json:"tokens" validate:"required"`
	CostEstimate float64 `json:"cost_estimate"`
}

var (
	limitGate  *service.LimitGate
	usageMeter *service.UsageMeter
	alertStore *store.AlertStore
)

func InitUsageController(gate *service.LimitGate, meter *service.UsageMeter, alerts *store.AlertStore) {
	limitGate = gate
	usageMeter = meter
	alertStore = alerts
}

// GetMyUsage returns the current period usage snapshot for the dashboard.
// It never records alerts.
func GetMyUsage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	return c.JSON(limitGate.Usage(claims.UserID))
}

// AuthorizeUsage is the pre-flight check the content generators call before
// a metered AI operation. The decision carries usage and limit so a blocked
// caller can show them to the user.
func AuthorizeUsage(c *fiber.Ctx) error {
	input := new(AuthorizeInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.EstimatedTokens < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Estimated tokens must not be negative",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)
	decision := limitGate.Authorize(claims.UserID, input.EstimatedTokens)

	if !decision.CanProceed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         "Monthly token limit reached",
			"current_usage": decision.CurrentUsage,
			"limit":         decision.Limit,
			"usage_percent": decision.UsagePercent,
		})
	}

	return c.JSON(decision)
}

// RecordUsage is called after the AI operation, with whatever the upstream
// call actually consumed, regardless of the operation's own outcome.
func RecordUsage(c *fiber.Ctx) error {
	input := new(RecordUsageInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	rec, err := usageMeter.Record(claims.UserID, input.OperationID, input.Tokens, input.CostEstimate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

func ListUsageAlerts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	alerts, err := alertStore.ListByUser(claims.UserID, 50)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch usage alerts",
		})
	}

	return c.JSON(alerts)
}

// ExportUsage streams the current period's usage records as CSV. The route
// is gated on the plan's export feature flag.
func ExportUsage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	period := model.PeriodKey(time.Now())

	var records []model.UsageRecord
	err := database.DB.
		Where("user_id = ? AND period_month = ?", claims.UserID, period).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch usage records",
		})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=usage-%s.csv", period))

	w := csv.NewWriter(c)
	w.Write([]string{"created_at", "operation", "tokens", "cost_estimate"})
	for _, rec := range records {
		w.Write([]string{
			rec.CreatedAt.Format(time.RFC3339),
			rec.Operation,
			strconv.FormatInt(rec.Tokens, 10),
			strconv.FormatFloat(rec.CostEstimate, 'f', 6, 64),
		})
	}
	w.Flush()
	return w.Error()
}
