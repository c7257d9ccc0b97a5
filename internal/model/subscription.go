package model

import (
	"time"

	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusPastDue   SubscriptionStatus = "past_due"
	SubStatusCanceled  SubscriptionStatus = "canceled"
	SubStatusSuspended SubscriptionStatus = "suspended"
	SubStatusExpired   SubscriptionStatus = "expired"
)

type Subscription struct {
	gorm.Model
	UserID uint `json:"user_id" gorm:"index;not null"`
	PlanID uint `json:"plan_id" gorm:"not null"`

	PayPalSubID string             `json:"paypal_subscription_id" gorm:"column:paypal_sub_id;uniqueIndex"`
	Status      SubscriptionStatus `json:"status" gorm:"default:'active'"`

	BillingPeriod     BillingPeriod `json:"billing_period" gorm:"default:'monthly'"`
	CurrentPeriodEnd  time.Time     `json:"current_period_end"`
	CancelAtPeriodEnd bool          `json:"cancel_at_period_end" gorm:"default:false"`
	CanceledAt        *time.Time    `json:"canceled_at"`

	// İlişkiler
	User User `json:"-" gorm:"foreignKey:UserID"`
	Plan Plan `json:"plan" gorm:"foreignKey:PlanID"`
}

// Usable reports whether the subscription still grants access: in good
// standing, or canceled but inside the already-paid period.
func (s *Subscription) Usable(now time.Time) bool {
	switch s.Status {
	case SubStatusActive, SubStatusPastDue:
		return true
	case SubStatusCanceled:
		return now.Before(s.CurrentPeriodEnd)
	}
	return false
}
