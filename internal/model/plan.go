package model

import "gorm.io/gorm"

type BillingPeriod string

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

func (p BillingPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

type Feature string

const (
	FeatureExport          Feature = "export"
	FeatureAPIAccess       Feature = "api_access"
	FeaturePrioritySupport Feature = "priority_support"
)

type Plan struct {
	gorm.Model
	Slug         string  `json:"slug" gorm:"uniqueIndex;not null"`
	Name         string  `json:"name" gorm:"not null"`
	Description  string  `json:"description"`
	PriceMonthly float64 `json:"price_monthly"`
	PriceYearly  float64 `json:"price_yearly"`

	// Kotalar. ProjectQuota nil ise sınırsız.
	ProjectQuota *int  `json:"project_quota"`
	TokenQuota   int64 `json:"token_quota" gorm:"not null"`
	RegenPerTab  int   `json:"regen_per_tab"`

	CanExport       bool `json:"can_export"`
	HasAPIAccess    bool `json:"has_api_access"`
	PrioritySupport bool `json:"priority_support"`

	PayPalPlanIDMonthly string `json:"paypal_plan_id_monthly" gorm:"column:paypal_plan_id_monthly"`
	PayPalPlanIDYearly  string `json:"paypal_plan_id_yearly" gorm:"column:paypal_plan_id_yearly"`

	IsActive  bool `json:"is_active" gorm:"default:true"`
	SortOrder int  `json:"sort_order"`
}

// ExternalPlanID returns the provider-side plan id for the billing period,
// or an empty string when the plan is not provisioned for that period.
func (p *Plan) ExternalPlanID(period BillingPeriod) string {
	if period == PeriodYearly {
		return p.PayPalPlanIDYearly
	}
	return p.PayPalPlanIDMonthly
}

func (p *Plan) PriceFor(period BillingPeriod) float64 {
	if period == PeriodYearly {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

func (p *Plan) HasFeature(f Feature) bool {
	switch f {
	case FeatureExport:
		return p.CanExport
	case FeatureAPIAccess:
		return p.HasAPIAccess
	case FeaturePrioritySupport:
		return p.PrioritySupport
	}
	return false
}
