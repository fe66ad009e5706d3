package analytics_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-booking-finance/internal/analytics"
	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

var now = time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.FinancialSnapshot)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return bunDB
}

func seedSnapshots(t *testing.T, bunDB *bun.DB) {
	t.Helper()
	snapshots := []models.FinancialSnapshot{
		{BookingID: 1, SchoolID: 1, Status: "active", ExpectedTotal: d("100"), NetBalance: d("100"), IsConsistent: true, DiscrepancyAmount: d("0"), AnalyzedAt: now.AddDate(0, 0, -1)},
		{BookingID: 2, SchoolID: 1, Status: "active", ExpectedTotal: d("200"), NetBalance: d("150"), IsConsistent: false, DiscrepancyAmount: d("50"), AnalyzedAt: now.AddDate(0, 0, -1)},
		{BookingID: 3, SchoolID: 1, Status: "cancelled", ExpectedTotal: d("0"), NetBalance: d("20"), IsConsistent: false, DiscrepancyAmount: d("20"), AnalyzedAt: now},
		{BookingID: 4, SchoolID: 2, Status: "active", ExpectedTotal: d("80"), NetBalance: d("80"), IsConsistent: true, DiscrepancyAmount: d("0"), AnalyzedAt: now},
	}
	_, err := bunDB.NewInsert().Model(&snapshots).Exec(context.Background())
	require.NoError(t, err)
}

func TestDB_GetSnapshotTotals(t *testing.T) {
	bunDB := setupTestDB(t)
	seedSnapshots(t, bunDB)
	store := analytics.NewDB(bunDB)

	totals, err := store.GetSnapshotTotals(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, totals.Bookings)
	assert.Equal(t, 1, totals.Consistent)
	assert.True(t, totals.ExpectedTotal.Equal(d("300")), totals.ExpectedTotal.String())
	assert.True(t, totals.NetBalance.Equal(d("270")), totals.NetBalance.String())
	assert.True(t, totals.DiscrepancyTotal.Equal(d("70")), totals.DiscrepancyTotal.String())
}

func TestDB_GetSnapshotTotals_EmptySchool(t *testing.T) {
	store := analytics.NewDB(setupTestDB(t))

	totals, err := store.GetSnapshotTotals(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, 0, totals.Bookings)
	assert.True(t, totals.DiscrepancyTotal.IsZero())
}

func TestDB_GetStatusBreakdown(t *testing.T) {
	bunDB := setupTestDB(t)
	seedSnapshots(t, bunDB)

	rows, err := analytics.NewDB(bunDB).GetStatusBreakdown(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "active", rows[0].Status)
	assert.Equal(t, 2, rows[0].Bookings)
	assert.Equal(t, 1, rows[0].Inconsistent)
	assert.Equal(t, "cancelled", rows[1].Status)
	assert.True(t, rows[1].DiscrepancyTotal.Equal(d("20")))
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetSnapshotTotals(ctx context.Context, schoolID int64) (analytics.SnapshotTotals, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).(analytics.SnapshotTotals), args.Error(1)
}

func (m *MockStore) GetStatusBreakdown(ctx context.Context, schoolID int64) ([]analytics.StatusBreakdownData, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.StatusBreakdownData), args.Error(1)
}

func (m *MockStore) ListSnapshotsSince(ctx context.Context, schoolID int64, since time.Time) ([]models.FinancialSnapshot, error) {
	args := m.Called(ctx, schoolID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FinancialSnapshot), args.Error(1)
}

func TestService_GetSchoolAnalytics(t *testing.T) {
	store := new(MockStore)
	store.On("GetSnapshotTotals", mock.Anything, int64(1)).Return(analytics.SnapshotTotals{
		Bookings: 4, Consistent: 3, ExpectedTotal: d("400"), NetBalance: d("380"), DiscrepancyTotal: d("20"),
	}, nil)
	store.On("GetStatusBreakdown", mock.Anything, int64(1)).Return([]analytics.StatusBreakdownData{
		{Status: "active", Bookings: 4, Inconsistent: 1, DiscrepancyTotal: d("20")},
	}, nil)

	since := time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC)
	store.On("ListSnapshotsSince", mock.Anything, int64(1), since).Return([]models.FinancialSnapshot{
		{BookingID: 1, IsConsistent: true, AnalyzedAt: now.AddDate(0, 0, -2)},
		{BookingID: 2, IsConsistent: false, DiscrepancyAmount: d("12.5"), AnalyzedAt: now},
		{BookingID: 3, IsConsistent: false, DiscrepancyAmount: d("7.5"), AnalyzedAt: now.Add(-time.Hour)},
	}, nil)

	svc := analytics.NewService(store)
	svc.SetClock(func() time.Time { return now })

	result, err := svc.GetSchoolAnalytics(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Bookings)
	assert.Equal(t, 1, result.Inconsistent)
	assert.True(t, result.ConsistencyRate.Equal(d("0.75")))
	require.Len(t, result.ByStatus, 1)
	assert.Equal(t, "active", result.ByStatus[0].Status)

	require.Len(t, result.Daily, 2)
	assert.Equal(t, "2025-02-08", result.Daily[0].Date)
	assert.Equal(t, 0, result.Daily[0].Inconsistent)
	assert.Equal(t, "2025-02-10", result.Daily[1].Date)
	assert.Equal(t, 2, result.Daily[1].Analyzed)
	assert.True(t, result.Daily[1].DiscrepancyAmount.Equal(d("20")))
	store.AssertExpectations(t)
}

func TestService_GetSchoolAnalytics_NoSnapshots(t *testing.T) {
	store := new(MockStore)
	store.On("GetSnapshotTotals", mock.Anything, int64(5)).Return(analytics.SnapshotTotals{}, nil)
	store.On("GetStatusBreakdown", mock.Anything, int64(5)).Return(nil, nil)
	store.On("ListSnapshotsSince", mock.Anything, int64(5), mock.Anything).Return(nil, nil)

	result, err := analytics.NewService(store).GetSchoolAnalytics(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.True(t, result.ConsistencyRate.IsZero())
	assert.Empty(t, result.ByStatus)
	assert.Empty(t, result.Daily)
}

func TestService_GetSchoolAnalytics_StoreError(t *testing.T) {
	store := new(MockStore)
	store.On("GetSnapshotTotals", mock.Anything, int64(1)).Return(analytics.SnapshotTotals{}, errors.New("db down"))

	_, err := analytics.NewService(store).GetSchoolAnalytics(context.Background(), 1, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestService_GetBatchSchoolAnalytics(t *testing.T) {
	store := new(MockStore)
	store.On("GetSnapshotTotals", mock.Anything, int64(1)).Return(analytics.SnapshotTotals{Bookings: 1, Consistent: 1}, nil)
	store.On("GetSnapshotTotals", mock.Anything, int64(2)).Return(analytics.SnapshotTotals{}, errors.New("timeout"))
	store.On("GetStatusBreakdown", mock.Anything, int64(1)).Return(nil, nil)
	store.On("ListSnapshotsSince", mock.Anything, int64(1), mock.Anything).Return(nil, nil)

	ok, failed, err := analytics.NewService(store).GetBatchSchoolAnalytics(context.Background(), []int64{1, 2}, 30)
	require.NoError(t, err)

	assert.Contains(t, ok, int64(1))
	assert.Contains(t, failed, int64(2))
	assert.NotContains(t, ok, int64(2))
}

func TestService_GetBatchSchoolAnalytics_TooMany(t *testing.T) {
	ids := make([]int64, 51)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	_, _, err := analytics.NewService(new(MockStore)).GetBatchSchoolAnalytics(context.Background(), ids, 30)
	assert.Error(t, err)
}
