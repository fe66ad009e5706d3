package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-booking-finance/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ---------------- BOOKINGS ----------------

// LoadBooking → booking with line items, courses, extras, payments and
// voucher logs. Children are loaded with one query per table and grouped in
// memory.
func (d *DB) LoadBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("b.id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, models.ErrBookingNotFound)
		}
		return nil, err
	}

	if booking.BookingUsers, err = d.lineItems(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("line items: %w", err)
	}

	err = d.Bun.NewSelect().
		Model(&booking.Payments).
		Where("p.booking_id = ?", bookingID).
		Order("p.created_at ASC", "p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}

	if booking.VoucherLogs, err = d.voucherLogs(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("voucher logs: %w", err)
	}

	return &booking, nil
}

func (d *DB) lineItems(ctx context.Context, bookingID int64) ([]*models.BookingUser, error) {
	var items []*models.BookingUser
	err := d.Bun.NewSelect().
		Model(&items).
		Where("bu.booking_id = ?", bookingID).
		Order("bu.id ASC").
		Scan(ctx)
	if err != nil || len(items) == 0 {
		return items, err
	}

	itemIDs := make([]int64, 0, len(items))
	courseIDs := make([]int64, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
		if item.CourseID != 0 {
			courseIDs = append(courseIDs, item.CourseID)
		}
	}

	courses := make(map[int64]*models.Course)
	if len(courseIDs) > 0 {
		var rows []*models.Course
		err := d.Bun.NewSelect().
			Model(&rows).
			Where("c.id IN (?)", bun.In(courseIDs)).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range rows {
			courses[c.ID] = c
		}
	}

	var extras []*models.BookingUserExtra
	err = d.Bun.NewSelect().
		Model(&extras).
		Where("bue.booking_user_id IN (?)", bun.In(itemIDs)).
		Order("bue.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	extrasByItem := make(map[int64][]*models.BookingUserExtra)
	for _, e := range extras {
		extrasByItem[e.BookingUserID] = append(extrasByItem[e.BookingUserID], e)
	}

	for _, item := range items {
		item.Course = courses[item.CourseID]
		item.Extras = extrasByItem[item.ID]
	}
	return items, nil
}

func (d *DB) voucherLogs(ctx context.Context, bookingID int64) ([]*models.VoucherLog, error) {
	var logs []*models.VoucherLog
	err := d.Bun.NewSelect().
		Model(&logs).
		Where("vl.booking_id = ?", bookingID).
		Order("vl.created_at ASC", "vl.id ASC").
		Scan(ctx)
	if err != nil || len(logs) == 0 {
		return logs, err
	}

	voucherIDs := make([]int64, 0, len(logs))
	for _, log := range logs {
		voucherIDs = append(voucherIDs, log.VoucherID)
	}

	var vouchers []*models.Voucher
	err = d.Bun.NewSelect().
		Model(&vouchers).
		Where("v.id IN (?)", bun.In(voucherIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Voucher, len(vouchers))
	for _, v := range vouchers {
		byID[v.ID] = v
	}
	for _, log := range logs {
		log.Voucher = byID[log.VoucherID]
	}
	return logs, nil
}

// ListBookingIDsBySchool → ids of every non-deleted booking of a school
func (d *DB) ListBookingIDsBySchool(ctx context.Context, schoolID int64) ([]int64, error) {
	var ids []int64
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("b.id").
		Where("b.school_id = ?", schoolID).
		Order("b.id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ---------------- SCHOOLS ----------------

func (d *DB) GetSchool(ctx context.Context, schoolID int64) (*models.School, error) {
	var school models.School
	err := d.Bun.NewSelect().
		Model(&school).
		Where("s.id = ?", schoolID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("school %d: %w", schoolID, models.ErrSchoolNotFound)
		}
		return nil, err
	}
	return &school, nil
}

// ---------------- SNAPSHOTS ----------------

// SaveSnapshot → insert or replace the stored outcome of a booking
func (d *DB) SaveSnapshot(ctx context.Context, snapshot *models.FinancialSnapshot) error {
	_, err := d.Bun.NewInsert().
		Model(snapshot).
		On("CONFLICT (booking_id) DO UPDATE").
		Set("school_id = EXCLUDED.school_id").
		Set("status = EXCLUDED.status").
		Set("expected_total = EXCLUDED.expected_total").
		Set("net_balance = EXCLUDED.net_balance").
		Set("is_consistent = EXCLUDED.is_consistent").
		Set("discrepancy_amount = EXCLUDED.discrepancy_amount").
		Set("discrepancy_count = EXCLUDED.discrepancy_count").
		Set("analysis_method = EXCLUDED.analysis_method").
		Set("analyzed_at = EXCLUDED.analyzed_at").
		Exec(ctx)
	return err
}

// GetSnapshot → last stored outcome of one booking
func (d *DB) GetSnapshot(ctx context.Context, bookingID int64) (*models.FinancialSnapshot, error) {
	var snapshot models.FinancialSnapshot
	err := d.Bun.NewSelect().
		Model(&snapshot).
		Where("fs.booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, models.ErrSnapshotNotFound)
		}
		return nil, err
	}
	return &snapshot, nil
}

// ListInconsistentSnapshots → latest inconsistent outcomes of a school, worst first
func (d *DB) ListInconsistentSnapshots(ctx context.Context, schoolID int64, limit int) ([]models.FinancialSnapshot, error) {
	var snapshots []models.FinancialSnapshot
	err := d.Bun.NewSelect().
		Model(&snapshots).
		Where("fs.school_id = ?", schoolID).
		Where("fs.is_consistent = ?", false).
		Order("fs.discrepancy_amount DESC", "fs.booking_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
