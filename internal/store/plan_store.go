// Package store contains the GORM-backed persistence for the billing core.
package store

import (
	"gorm.io/gorm"

	"copydesk_backend/internal/model"
)

// PlanStore is the read-only plan catalog.
type PlanStore struct {
	db *gorm.DB
}

func NewPlanStore(db *gorm.DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) BySlug(slug string) (*model.Plan, error) {
	var plan model.Plan
	if err := s.db.Where("slug = ? AND is_active = ?", slug, true).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *PlanStore) ByID(id uint) (*model.Plan, error) {
	var plan model.Plan
	if err := s.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *PlanStore) ListActive() ([]model.Plan, error) {
	var plans []model.Plan
	err := s.db.Where("is_active = ?", true).Order("sort_order asc").Find(&plans).Error
	return plans, err
}
