package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`
	Name     string `json:"name" gorm:"not null"`

	// Kota ayarları
	BonusTokens               int64 `json:"bonus_tokens" gorm:"default:0"`
	LimitNotificationsEnabled bool  `json:"limit_notifications_enabled" gorm:"default:true"`
	UsageAlertThreshold       int   `json:"usage_alert_threshold" gorm:"default:80"`

	// İlişkiler
	Subscriptions []Subscription `json:"-"`
}

func (u *User) FirstName() string {
	parts := strings.Fields(u.Name)
	if len(parts) == 0 {
		return u.Name
	}
	return parts[0]
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":                          u.ID,
		"email":                       u.Email,
		"name":                        u.Name,
		"bonus_tokens":                u.BonusTokens,
		"limit_notifications_enabled": u.LimitNotificationsEnabled,
		"usage_alert_threshold":       u.UsageAlertThreshold,
	}
}
