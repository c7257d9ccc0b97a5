package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsWithCurrentPeriod(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)
	meter.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	rec, err := meter.Record(1, "op-123", 2_500, 0.04)
	require.NoError(t, err)

	assert.Equal(t, "2026-08", rec.PeriodMonth)
	assert.Equal(t, "op-123", rec.Operation)
	assert.Equal(t, int64(2_500), rec.Tokens)
	require.Len(t, usage.records, 1)
}

func TestRecordGeneratesOperationID(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)

	rec, err := meter.Record(1, "", 100, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Operation)
}

func TestRecordRejectsZeroTokens(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)

	_, err := meter.Record(1, "op-123", 0, 0)
	assert.Error(t, err)
	assert.Empty(t, usage.records)
}

func TestNegativeCorrectionReducesTheSum(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)
	meter.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	_, err := meter.Record(1, "gen-1", 5_000, 0.08)
	require.NoError(t, err)
	// Düzeltme: güncelleme değil, negatif kayıt.
	_, err = meter.Record(1, "gen-1-correction", -1_500, 0)
	require.NoError(t, err)

	total, err := meter.CurrentPeriodUsage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3_500), total)
	assert.Len(t, usage.records, 2)
}

func TestUsageIsBucketedPerCalendarMonth(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)

	now := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	meter.now = func() time.Time { return now }

	_, err := meter.Record(1, "july-op", 9_000, 0)
	require.NoError(t, err)

	// Ay dönümü: temmuz kayıtları ağustos toplamına girmez.
	now = time.Date(2026, 8, 1, 0, 30, 0, 0, time.UTC)

	total, err := meter.CurrentPeriodUsage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, err = meter.Record(1, "august-op", 4_000, 0)
	require.NoError(t, err)

	total, err = meter.CurrentPeriodUsage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000), total)
}

func TestUsageIsolatedPerUser(t *testing.T) {
	usage := &fakeUsageStore{}
	meter := NewUsageMeter(usage)

	_, err := meter.Record(1, "", 1_000, 0)
	require.NoError(t, err)
	_, err = meter.Record(2, "", 7_000, 0)
	require.NoError(t, err)

	total, err := meter.CurrentPeriodUsage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), total)
}
