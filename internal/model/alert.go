package model

import "gorm.io/gorm"

type AlertType string

const (
	AlertWarning       AlertType = "warning"
	AlertLimitReached  AlertType = "limit_reached"
	AlertLimitExceeded AlertType = "limit_exceeded"
)

// UsageAlert is write-once. DedupKey carries a user:type:hour bucket for
// warning/limit_reached alerts so the database suppresses concurrent
// duplicates; limit_exceeded alerts get a per-row key and are never deduped.
type UsageAlert struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"index;not null"`
	Type         AlertType `json:"type" gorm:"not null"`
	UsagePercent float64   `json:"usage_percent"`
	DedupKey     string    `json:"-" gorm:"uniqueIndex;size:96;not null"`
}
