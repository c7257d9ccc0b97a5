package model

import (
	"time"

	"gorm.io/gorm"
)

// UsageRecord is append-only: a correction is a new record with a negative
// token amount, never an update or delete.
type UsageRecord struct {
	gorm.Model
	UserID       uint    `json:"user_id" gorm:"index:idx_usage_user_period;not null"`
	PeriodMonth  string  `json:"period_month" gorm:"index:idx_usage_user_period;size:7;not null"`
	Tokens       int64   `json:"tokens" gorm:"not null"`
	Operation    string  `json:"operation"`
	CostEstimate float64 `json:"cost_estimate"`
}

// PeriodKey buckets a point in time into its UTC calendar month.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
