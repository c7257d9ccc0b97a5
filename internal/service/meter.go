package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"copydesk_backend/internal/model"
)

// UsageMeter records metered token consumption and aggregates it per user
// per calendar month. Records are never updated or deleted; a correction is
// a new record with a negative amount.
type UsageMeter struct {
	usage UsageStore
	now   func() time.Time
}

func NewUsageMeter(usage UsageStore) *UsageMeter {
	return &UsageMeter{usage: usage, now: time.Now}
}

// Record appends one usage record for the current period. Callers invoke it
// after the metered operation, with the tokens the upstream AI call actually
// consumed.
func (m *UsageMeter) Record(userID uint, operationID string, tokens int64, costEstimate float64) (*model.UsageRecord, error) {
	if tokens == 0 {
		return nil, fmt.Errorf("usage record without tokens")
	}
	if operationID == "" {
		operationID = uuid.NewString()
	}

	rec := &model.UsageRecord{
		UserID:       userID,
		PeriodMonth:  model.PeriodKey(m.now()),
		Tokens:       tokens,
		Operation:    operationID,
		CostEstimate: costEstimate,
	}
	if err := m.usage.Append(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CurrentPeriodUsage sums the user's token records for the current UTC
// calendar month.
func (m *UsageMeter) CurrentPeriodUsage(userID uint) (int64, error) {
	return m.usage.SumTokens(userID, model.PeriodKey(m.now()))
}
