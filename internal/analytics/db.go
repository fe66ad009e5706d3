package analytics

import (
	"context"
	"time"

	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB handles analytics queries over booking_financial_snapshots
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// SnapshotTotals represents raw aggregate metrics of a school's snapshots
type SnapshotTotals struct {
	Bookings         int             `bun:"bookings"`
	Consistent       int             `bun:"consistent"`
	ExpectedTotal    decimal.Decimal `bun:"expected_total"`
	NetBalance       decimal.Decimal `bun:"net_balance"`
	DiscrepancyTotal decimal.Decimal `bun:"discrepancy_total"`
}

// GetSnapshotTotals aggregates every snapshot of a school
func (db *DB) GetSnapshotTotals(ctx context.Context, schoolID int64) (SnapshotTotals, error) {
	var totals SnapshotTotals
	err := db.bun.NewSelect().
		ColumnExpr("COUNT(*) AS bookings").
		ColumnExpr("COALESCE(SUM(CASE WHEN s.is_consistent THEN 1 ELSE 0 END), 0) AS consistent").
		ColumnExpr("COALESCE(SUM(s.expected_total), 0) AS expected_total").
		ColumnExpr("COALESCE(SUM(s.net_balance), 0) AS net_balance").
		ColumnExpr("COALESCE(SUM(s.discrepancy_amount), 0) AS discrepancy_total").
		TableExpr("booking_financial_snapshots AS s").
		Where("s.school_id = ?", schoolID).
		Scan(ctx, &totals)

	return totals, err
}

// StatusBreakdownData represents snapshot metrics grouped by booking status
type StatusBreakdownData struct {
	Status           string          `bun:"status"`
	Bookings         int             `bun:"bookings"`
	Inconsistent     int             `bun:"inconsistent"`
	DiscrepancyTotal decimal.Decimal `bun:"discrepancy_total"`
}

// GetStatusBreakdown groups a school's snapshots by booking status
func (db *DB) GetStatusBreakdown(ctx context.Context, schoolID int64) ([]StatusBreakdownData, error) {
	var rows []StatusBreakdownData
	err := db.bun.NewSelect().
		ColumnExpr("s.status").
		ColumnExpr("COUNT(*) AS bookings").
		ColumnExpr("COALESCE(SUM(CASE WHEN s.is_consistent THEN 0 ELSE 1 END), 0) AS inconsistent").
		ColumnExpr("COALESCE(SUM(s.discrepancy_amount), 0) AS discrepancy_total").
		TableExpr("booking_financial_snapshots AS s").
		Where("s.school_id = ?", schoolID).
		GroupExpr("s.status").
		OrderExpr("s.status").
		Scan(ctx, &rows)

	return rows, err
}

// ListSnapshotsSince returns the snapshots analyzed at or after since,
// oldest first
func (db *DB) ListSnapshotsSince(ctx context.Context, schoolID int64, since time.Time) ([]models.FinancialSnapshot, error) {
	var snapshots []models.FinancialSnapshot
	err := db.bun.NewSelect().
		Model(&snapshots).
		Where("school_id = ?", schoolID).
		Where("analyzed_at >= ?", since).
		Order("analyzed_at ASC").
		Scan(ctx)

	return snapshots, err
}
