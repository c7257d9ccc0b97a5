package store

import (
	"gorm.io/gorm"

	"copydesk_backend/internal/model"
)

// UsageStore only appends and sums. There is deliberately no update or
// delete: corrections are negative-amount records.
type UsageStore struct {
	db *gorm.DB
}

func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

func (s *UsageStore) Append(rec *model.UsageRecord) error {
	return s.db.Create(rec).Error
}

func (s *UsageStore) SumTokens(userID uint, period string) (int64, error) {
	var total int64
	err := s.db.Model(&model.UsageRecord{}).
		Where("user_id = ? AND period_month = ?", userID, period).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&total).Error
	return total, err
}
