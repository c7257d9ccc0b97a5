package seed

import (
	"log"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"copydesk_backend/internal/model"
)

func intPtr(v int) *int { return &v }

// SeedSubscriptionPlans creates the plan catalog on first boot. Plans are
// immutable once referenced by a live subscription, so existing rows are
// left alone.
func SeedSubscriptionPlans(db *gorm.DB) {
	var count int64
	db.Model(&model.Plan{}).Count(&count)
	if count > 0 {
		return
	}

	plans := []model.Plan{
		{
			Name:         "Free",
			Description:  "Try CopyDesk with a small monthly token allowance",
			PriceMonthly: 0,
			PriceYearly:  0,
			ProjectQuota: intPtr(1),
			TokenQuota:   10_000,
			RegenPerTab:  3,
			SortOrder:    0,
		},
		{
			Name:                "Starter",
			Description:         "For solo creators publishing every week",
			PriceMonthly:        19,
			PriceYearly:         190,
			ProjectQuota:        intPtr(10),
			TokenQuota:          100_000,
			RegenPerTab:         10,
			CanExport:           true,
			PayPalPlanIDMonthly: "P-COPYDESK-STARTER-M",
			PayPalPlanIDYearly:  "P-COPYDESK-STARTER-Y",
			SortOrder:           1,
		},
		{
			Name:                "Pro",
			Description:         "For marketing teams with a steady content pipeline",
			PriceMonthly:        49,
			PriceYearly:         490,
			ProjectQuota:        intPtr(50),
			TokenQuota:          500_000,
			RegenPerTab:         25,
			CanExport:           true,
			HasAPIAccess:        true,
			PayPalPlanIDMonthly: "P-COPYDESK-PRO-M",
			PayPalPlanIDYearly:  "P-COPYDESK-PRO-Y",
			SortOrder:           2,
		},
		{
			Name:                "Agency",
			Description:         "Unlimited projects for agencies and large teams",
			PriceMonthly:        99,
			PriceYearly:         990,
			ProjectQuota:        nil, // sınırsız
			TokenQuota:          2_000_000,
			RegenPerTab:         50,
			CanExport:           true,
			HasAPIAccess:        true,
			PrioritySupport:     true,
			PayPalPlanIDMonthly: "P-COPYDESK-AGENCY-M",
			PayPalPlanIDYearly:  "P-COPYDESK-AGENCY-Y",
			SortOrder:           3,
		},
	}

	for i := range plans {
		plans[i].Slug = slug.Make(plans[i].Name)
		plans[i].IsActive = true
		if err := db.Create(&plans[i]).Error; err != nil {
			log.Printf("Could not seed plan %s: %v", plans[i].Name, err)
		}
	}

	log.Printf("Seeded %d subscription plans", len(plans))
}
