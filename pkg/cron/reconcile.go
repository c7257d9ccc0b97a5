package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"copydesk_backend/internal/model"
	"copydesk_backend/internal/service"
	"copydesk_backend/pkg/database"
	"copydesk_backend/pkg/email"
)

// InitReconciliationCron starts the scheduled sweeps. The hourly sweep is
// the safety net for missed provider events: the webhook stream is the
// primary source of truth, but delivery is not guaranteed.
func InitReconciliationCron(processor *service.WebhookEventProcessor) {
	c := cron.New()

	_, err := c.AddFunc("@hourly", func() {
		expired, err := processor.ReconcileExpired(time.Now())
		if err != nil {
			log.Printf("Subscription reconciliation failed: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("Reconciliation expired %d lapsed subscriptions", expired)
		}
	})
	if err != nil {
		log.Printf("Could not initialize reconciliation cron: %v", err)
		return
	}

	_, err = c.AddFunc("0 9 * * *", func() {
		sendExpiryWarnings()
	})
	if err != nil {
		log.Printf("Could not initialize expiry warning cron: %v", err)
		return
	}

	c.Start()
}

// sendExpiryWarnings mails users whose cancelled subscription ends in 7 or
// 3 days.
func sendExpiryWarnings() {
	log.Println("Checking for expiring subscriptions...")

	warningDays := []int{7, 3}

	for _, days := range warningDays {
		var subs []model.Subscription
		targetDate := time.Now().AddDate(0, 0, days).Format("2006-01-02")

		err := database.DB.
			Where("DATE(current_period_end) = ? AND status = ? AND cancel_at_period_end = ?",
				targetDate, model.SubStatusCanceled, true).
			Preload("User").
			Preload("Plan").
			Find(&subs).Error
		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		log.Printf("Found %d subscriptions expiring in %d days", len(subs), days)

		for _, sub := range subs {
			if email.GlobalEmailService == nil {
				continue
			}
			err := email.GlobalEmailService.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.Name,
				sub.Plan.Name,
				sub.CurrentPeriodEnd,
				days,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
			}
		}
	}
}
