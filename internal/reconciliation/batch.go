package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-booking-finance/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type BookingFailure struct {
	BookingID int64  `json:"booking_id"`
	Error     string `json:"error"`
}

type BatchSummary struct {
	SchoolID               int64            `json:"school_id"`
	Processed              int              `json:"processed"`
	Consistent             int              `json:"consistent"`
	Inconsistent           int              `json:"inconsistent"`
	Failed                 int              `json:"failed"`
	TotalDiscrepancyAmount decimal.Decimal  `json:"total_discrepancy_amount"`
	Failures               []BookingFailure `json:"failures,omitempty"`
	Duration               string           `json:"duration"`
}

func (b *BatchSummary) record(report *FullReport) {
	b.Processed++
	if report.IsConsistent() {
		b.Consistent++
		return
	}
	b.Inconsistent++
	if report.Verdict != nil {
		b.TotalDiscrepancyAmount = b.TotalDiscrepancyAmount.Add(report.Verdict.MainDiscrepancyAmount)
	}
}

// RecalculateSchool re-analyzes every booking of a school with bounded
// concurrency. A failing booking is recorded and does not stop the batch.
func (s *Service) RecalculateSchool(ctx context.Context, schoolID int64) (*BatchSummary, error) {
	if s.Locker != nil {
		owner := uuid.NewString()
		ok, err := s.Locker.LockSchool(ctx, schoolID, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to lock school %d: %w", schoolID, err)
		}
		if !ok {
			return nil, fmt.Errorf("school %d: %w", schoolID, models.ErrRecalculationBusy)
		}
		defer func() {
			if err := s.Locker.UnlockSchool(context.WithoutCancel(ctx), schoolID, owner); err != nil {
				s.logger.Warn("RECALCULATE", fmt.Sprintf("Failed to release lock of school %d: %v", schoolID, err))
			}
		}()
	}

	start := time.Now()
	ids, err := s.DB.ListBookingIDsBySchool(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings of school %d: %w", schoolID, err)
	}
	s.logger.LogProcess("RECALCULATE", fmt.Sprintf("school %d: %d bookings", schoolID, len(ids)))

	summary := &BatchSummary{SchoolID: schoolID, TotalDiscrepancyAmount: decimal.Zero}
	var mu sync.Mutex

	limit := s.cfg.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.AnalyzeBookingInScope(gctx, Scope{SchoolID: schoolID}, id, true)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, BookingFailure{BookingID: id, Error: err.Error()})
				return nil
			}
			summary.record(report)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("recalculation of school %d interrupted: %w", schoolID, err)
	}

	summary.Duration = time.Since(start).String()
	s.logger.LogProcess("RECALCULATE", fmt.Sprintf("school %d done: processed=%d consistent=%d inconsistent=%d failed=%d",
		schoolID, summary.Processed, summary.Consistent, summary.Inconsistent, summary.Failed))
	return summary, nil
}
