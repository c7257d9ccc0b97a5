package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"copydesk_backend/internal/controller"
	"copydesk_backend/internal/middleware"
	"copydesk_backend/internal/model"
	"copydesk_backend/internal/service"
	"copydesk_backend/internal/store"
	"copydesk_backend/pkg/config"
	"copydesk_backend/pkg/cron"
	"copydesk_backend/pkg/database"
	"copydesk_backend/pkg/email"
	"copydesk_backend/pkg/paypal"
	"copydesk_backend/pkg/seed"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.ListPlans)

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/checkout", controller.CreateCheckout)
	subProtected.Post("/change-plan", middleware.RequireActiveSubscription(), controller.ChangePlan)
	subProtected.Post("/cancel", middleware.RequireActiveSubscription(), controller.CancelSubscription)
	subProtected.Get("/my", controller.GetMySubscription)
	subProtected.Get("/history", controller.GetBillingHistory)

	// Usage metering routes; authorize/record are the contract the content
	// generation services call around every metered AI operation.
	usage := api.Group("/usage", middleware.AuthMiddleware())
	usage.Get("/", controller.GetMyUsage)
	usage.Post("/authorize", controller.AuthorizeUsage)
	usage.Post("/record", controller.RecordUsage)
	usage.Get("/alerts", controller.ListUsageAlerts)
	usage.Get("/export", middleware.CheckFeatureAccess(model.FeatureExport), controller.ExportUsage)

	// PayPal webhook
	api.Post("/webhook/paypal", controller.HandlePayPalWebhook)
}

func main() {
	cfg := config.Load()

	if err := email.InitEmailService(cfg.Resend.APIKey); err != nil {
		log.Printf("Email service disabled: %v", err)
	}

	if cfg.DB.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.DB.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Plan{},
		&model.Subscription{},
		&model.UsageRecord{},
		&model.UsageAlert{},
		&model.LedgerEntry{},
		&model.ProcessedWebhookEvent{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedSubscriptionPlans(database.DB)

	billingClient := paypal.New(paypal.Config{
		BaseURL:   cfg.PayPal.BaseURL,
		ClientID:  cfg.PayPal.ClientID,
		Secret:    cfg.PayPal.Secret,
		WebhookID: cfg.PayPal.WebhookID,
		ReturnURL: cfg.PayPal.ReturnURL,
		CancelURL: cfg.PayPal.CancelURL,
	})

	subs := store.NewSubscriptionStore(database.DB)
	plans := store.NewPlanStore(database.DB)
	users := store.NewUserStore(database.DB)
	usage := store.NewUsageStore(database.DB)
	alerts := store.NewAlertStore(database.DB)
	events := store.NewEventStore(database.DB)

	var notifier service.Notifier
	if email.GlobalEmailService != nil {
		notifier = email.GlobalEmailService
	}

	coordinator := service.NewPlanChangeCoordinator(subs, plans, users, billingClient, notifier)
	processor := service.NewWebhookEventProcessor(subs, plans, users, events, notifier)
	meter := service.NewUsageMeter(usage)
	gate := service.NewLimitGate(users, subs, plans, meter, alerts, notifier)

	controller.InitSubscriptionController(coordinator, processor, billingClient)
	controller.InitUsageController(gate, meter, alerts)

	cron.InitReconciliationCron(processor)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
