package store

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copydesk_backend/internal/model"
)

type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// InsertUnique writes the alert unless a row with the same dedup key exists,
// so concurrent duplicates are absorbed by the database rather than by
// application logic.
func (s *AlertStore) InsertUnique(alert *model.UsageAlert) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(alert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *AlertStore) ExistsSince(userID uint, typ model.AlertType, since time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&model.UsageAlert{}).
		Where("user_id = ? AND type = ? AND created_at > ?", userID, typ, since).
		Count(&count).Error
	return count > 0, err
}

func (s *AlertStore) ListByUser(userID uint, limit int) ([]model.UsageAlert, error) {
	var alerts []model.UsageAlert
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}
