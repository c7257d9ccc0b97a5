package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProcessedWebhookEvent dedupes provider webhook deliveries. The unique
// EventID index makes the idempotency check a conditional insert instead of
// a read-then-write.
type ProcessedWebhookEvent struct {
	gorm.Model
	EventID   string         `json:"event_id" gorm:"uniqueIndex;not null"`
	EventType string         `json:"event_type"`
	Payload   datatypes.JSON `json:"payload"`
}
