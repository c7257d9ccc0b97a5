package store

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copydesk_backend/internal/model"
	"copydesk_backend/internal/service"
)

type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// ActiveByUser returns the user's subscription in good standing. A canceled
// or expired subscription does not count; the caller falls back to the free
// tier.
func (s *SubscriptionStore) ActiveByUser(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.
		Where("user_id = ? AND status IN ?", userID,
			[]model.SubscriptionStatus{model.SubStatusActive, model.SubStatusPastDue}).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CurrentByUser returns the user's latest subscription that can still carry
// entitlements, including a canceled one inside its paid period. Expired and
// suspended rows are out: the paid period is over or payment never recovered.
func (s *SubscriptionStore) CurrentByUser(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.
		Where("user_id = ? AND status IN ?", userID,
			[]model.SubscriptionStatus{
				model.SubStatusActive, model.SubStatusPastDue, model.SubStatusCanceled,
			}).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionStore) ByProviderID(providerSubID string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.Where("paypal_sub_id = ?", providerSubID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateWithLedger inserts a new subscription and its opening ledger entry
// together; a failure on either leaves neither row behind.
func (s *SubscriptionStore) CreateWithLedger(sub *model.Subscription, entry *model.LedgerEntry) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		entry.SubscriptionID = sub.ID
		return tx.Create(entry).Error
	})
}

// UpdateWithLedger commits the subscription, an optional ledger row and an
// optional processed-event record in a single transaction. When the event id
// was already recorded nothing is written and ErrDuplicateEvent comes back.
func (s *SubscriptionStore) UpdateWithLedger(sub *model.Subscription, entry *model.LedgerEntry, ev *model.ProcessedWebhookEvent) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if ev != nil {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "event_id"}},
				DoNothing: true,
			}).Create(ev)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return service.ErrDuplicateEvent
			}
		}
		if err := tx.Save(sub).Error; err != nil {
			return err
		}
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LapsedBefore lists canceled and suspended subscriptions whose paid period
// ended before the cutoff; the reconciliation sweep expires them.
func (s *SubscriptionStore) LapsedBefore(cutoff time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.
		Where("status IN ? AND current_period_end < ?",
			[]model.SubscriptionStatus{model.SubStatusCanceled, model.SubStatusSuspended}, cutoff).
		Find(&subs).Error
	return subs, err
}
