package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
	maxBatchSchools  = 50
)

// Store is the query surface the service reads from
type Store interface {
	GetSnapshotTotals(ctx context.Context, schoolID int64) (SnapshotTotals, error)
	GetStatusBreakdown(ctx context.Context, schoolID int64) ([]StatusBreakdownData, error)
	ListSnapshotsSince(ctx context.Context, schoolID int64, since time.Time) ([]models.FinancialSnapshot, error)
}

// Service handles reconciliation analytics operations
type Service struct {
	DB  Store
	now func() time.Time
}

// NewService creates a new analytics service
func NewService(db Store) *Service {
	return &Service{DB: db, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SchoolAnalytics represents the aggregated reconciliation state of a school
type SchoolAnalytics struct {
	SchoolID         int64                `json:"school_id"`
	Bookings         int                  `json:"bookings"`
	Consistent       int                  `json:"consistent"`
	Inconsistent     int                  `json:"inconsistent"`
	ConsistencyRate  decimal.Decimal      `json:"consistency_rate"`
	ExpectedTotal    decimal.Decimal      `json:"expected_total"`
	NetBalance       decimal.Decimal      `json:"net_balance"`
	DiscrepancyTotal decimal.Decimal      `json:"discrepancy_total"`
	ByStatus         []StatusMetrics      `json:"by_status"`
	Daily            []DailyDiscrepancies `json:"daily"`
}

// StatusMetrics contains snapshot metrics for one booking status
type StatusMetrics struct {
	Status           string          `json:"status"`
	Bookings         int             `json:"bookings"`
	Inconsistent     int             `json:"inconsistent"`
	DiscrepancyTotal decimal.Decimal `json:"discrepancy_total"`
}

// DailyDiscrepancies contains the analyses of a single day
type DailyDiscrepancies struct {
	Date              string          `json:"date"`
	Analyzed          int             `json:"analyzed"`
	Inconsistent      int             `json:"inconsistent"`
	DiscrepancyAmount decimal.Decimal `json:"discrepancy_amount"`
}

// GetSchoolAnalytics returns totals, the status breakdown and a daily
// trend over the last days days.
func (s *Service) GetSchoolAnalytics(ctx context.Context, schoolID int64, days int) (*SchoolAnalytics, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	days = min(days, MaxTrendDays)

	totals, err := s.DB.GetSnapshotTotals(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate snapshots of school %d: %w", schoolID, err)
	}

	breakdown, err := s.DB.GetStatusBreakdown(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to group snapshots of school %d: %w", schoolID, err)
	}

	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	snapshots, err := s.DB.ListSnapshotsSince(ctx, schoolID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots of school %d: %w", schoolID, err)
	}

	result := &SchoolAnalytics{
		SchoolID:         schoolID,
		Bookings:         totals.Bookings,
		Consistent:       totals.Consistent,
		Inconsistent:     totals.Bookings - totals.Consistent,
		ConsistencyRate:  decimal.Zero,
		ExpectedTotal:    totals.ExpectedTotal,
		NetBalance:       totals.NetBalance,
		DiscrepancyTotal: totals.DiscrepancyTotal,
		ByStatus:         make([]StatusMetrics, 0, len(breakdown)),
		Daily:            dailyTrend(snapshots),
	}
	if totals.Bookings > 0 {
		result.ConsistencyRate = decimal.NewFromInt(int64(totals.Consistent)).
			Div(decimal.NewFromInt(int64(totals.Bookings))).Round(4)
	}
	for _, row := range breakdown {
		result.ByStatus = append(result.ByStatus, StatusMetrics(row))
	}

	return result, nil
}

func dailyTrend(snapshots []models.FinancialSnapshot) []DailyDiscrepancies {
	byDay := make(map[string]*DailyDiscrepancies)
	for _, snap := range snapshots {
		day := snap.AnalyzedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailyDiscrepancies{Date: day, DiscrepancyAmount: decimal.Zero}
			byDay[day] = d
		}
		d.Analyzed++
		if !snap.IsConsistent {
			d.Inconsistent++
			d.DiscrepancyAmount = d.DiscrepancyAmount.Add(snap.DiscrepancyAmount)
		}
	}

	trend := make([]DailyDiscrepancies, 0, len(byDay))
	for _, d := range byDay {
		trend = append(trend, *d)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	return trend
}

// GetBatchSchoolAnalytics computes the analytics of several schools in
// parallel. Schools that fail are reported by id.
func (s *Service) GetBatchSchoolAnalytics(ctx context.Context, schoolIDs []int64, days int) (map[int64]*SchoolAnalytics, map[int64]string, error) {
	if len(schoolIDs) > maxBatchSchools {
		return nil, nil, fmt.Errorf("at most %d schools per batch, got %d", maxBatchSchools, len(schoolIDs))
	}

	results := make([]*SchoolAnalytics, len(schoolIDs))
	errs := make([]error, len(schoolIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range schoolIDs {
		i, id := i, id
		g.Go(func() error {
			results[i], errs[i] = s.GetSchoolAnalytics(gctx, id, days)
			return nil
		})
	}
	_ = g.Wait()

	ok := make(map[int64]*SchoolAnalytics, len(schoolIDs))
	failed := make(map[int64]string)
	for i, id := range schoolIDs {
		if errs[i] != nil {
			failed[id] = errs[i].Error()
			continue
		}
		ok[id] = results[i]
	}
	return ok, failed, nil
}
