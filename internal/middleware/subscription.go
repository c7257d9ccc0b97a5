package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"copydesk_backend/internal/model"
	"copydesk_backend/pkg/database"
	"copydesk_backend/pkg/utils/jwt"
)

// RequireActiveSubscription guards routes that only make sense with a paid
// subscription (plan change, cancel).
func RequireActiveSubscription() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var sub model.Subscription
		err := database.DB.
			Where("user_id = ? AND status IN ?", claims.UserID,
				[]model.SubscriptionStatus{model.SubStatusActive, model.SubStatusPastDue}).
			First(&sub).Error
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "No active subscription found",
			})
		}

		return c.Next()
	}
}

// CheckFeatureAccess gates a route on a plan feature flag. Users without a
// usable subscription are evaluated against the free plan.
func CheckFeatureAccess(feature model.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var plan model.Plan
		var sub model.Subscription
		err := database.DB.
			Where("user_id = ? AND status IN ?", claims.UserID,
				[]model.SubscriptionStatus{
					model.SubStatusActive, model.SubStatusPastDue, model.SubStatusCanceled,
				}).
			Order("created_at desc").
			First(&sub).Error
		if err == nil && sub.Usable(time.Now()) {
			err = database.DB.First(&plan, sub.PlanID).Error
		} else {
			err = database.DB.Where("slug = ?", "free").First(&plan).Error
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not resolve subscription plan",
			})
		}

		if !plan.HasFeature(feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This feature requires a higher subscription plan",
			})
		}

		return c.Next()
	}
}
