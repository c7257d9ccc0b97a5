package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copydesk_backend/internal/model"
)

type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// MarkProcessed records a webhook event id as handled. Returns false when
// the id was already recorded, which makes duplicate delivery a no-op.
func (s *EventStore) MarkProcessed(ev *model.ProcessedWebhookEvent) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
