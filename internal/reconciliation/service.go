package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking-finance/internal/config"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/pricing"
)

type DBLayer interface {
	LoadBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	GetSchool(ctx context.Context, schoolID int64) (*models.School, error)
	ListBookingIDsBySchool(ctx context.Context, schoolID int64) ([]int64, error)
	SaveSnapshot(ctx context.Context, snapshot *models.FinancialSnapshot) error
}

type ReportCache interface {
	GetReport(ctx context.Context, bookingID int64) (*FullReport, error)
	SetReport(ctx context.Context, report *FullReport) error
	InvalidateReport(ctx context.Context, bookingID int64) error
}

type KafkaPublisher interface {
	PublishDiscrepancy(ctx context.Context, report *FullReport) error
}

// SchoolLocker serializes school-wide recalculations across instances.
type SchoolLocker interface {
	LockSchool(ctx context.Context, schoolID int64, owner string) (bool, error)
	UnlockSchool(ctx context.Context, schoolID int64, owner string) error
}

type Service struct {
	DB       DBLayer
	Cache    ReportCache
	Kafka    KafkaPublisher
	Locker   SchoolLocker
	Analyzer *Analyzer

	cfg    config.ReconciliationConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewService(db DBLayer, cache ReportCache, kafka KafkaPublisher, cfg config.ReconciliationConfig, log *logger.Logger) *Service {
	judge := NewJudge(cfg.Tolerance, cfg.HighSeverityThreshold)
	return &Service{
		DB:       db,
		Cache:    cache,
		Kafka:    kafka,
		Analyzer: NewAnalyzer(judge, nil),
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for PricingContext.Now.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Scope limits a call to the bookings of one school. The zero Scope
// allows every school.
type Scope struct {
	SchoolID int64
}

func (sc Scope) allows(schoolID int64) bool {
	return sc.SchoolID == 0 || sc.SchoolID == schoolID
}

func (sc Scope) check(bookingID, schoolID int64) error {
	if sc.allows(schoolID) {
		return nil
	}
	return fmt.Errorf("booking %d is outside school %d: %w", bookingID, sc.SchoolID, models.ErrForbiddenSchool)
}

// AnalyzeBooking returns the financial report of a booking, served from the
// cache unless refresh is set.
func (s *Service) AnalyzeBooking(ctx context.Context, bookingID int64, refresh bool) (*FullReport, error) {
	return s.AnalyzeBookingInScope(ctx, Scope{}, bookingID, refresh)
}

// AnalyzeBookingInScope is AnalyzeBooking for a caller bound to a school.
// A booking of another school yields ErrForbiddenSchool before anything is
// stored, cached or published.
func (s *Service) AnalyzeBookingInScope(ctx context.Context, scope Scope, bookingID int64, refresh bool) (*FullReport, error) {
	// Step 1: cached report
	if !refresh && s.Cache != nil {
		report, err := s.Cache.GetReport(ctx, bookingID)
		switch {
		case err == nil:
			if err := scope.check(bookingID, report.SchoolID); err != nil {
				return nil, err
			}
			s.logger.LogCache("HIT", fmt.Sprintf("report:%d", bookingID), "serving cached report")
			return report, nil
		case !errors.Is(err, models.ErrCacheMiss):
			s.logger.Warn("CACHE", fmt.Sprintf("Cache lookup failed for booking %d: %v", bookingID, err))
		}
	}

	// Step 2: load aggregate and school settings
	booking, pc, err := s.load(ctx, scope, bookingID)
	if err != nil {
		return nil, err
	}

	// Step 3: analyze
	report := s.Analyzer.AnalyzeFinancialReality(pc, booking, pricing.DefaultOptions())
	if report.AnalysisMethod == MethodErrorFallback {
		s.logger.Error("RECONCILE", fmt.Sprintf("Analysis of booking %d fell back: %s", bookingID, report.Error))
	} else {
		s.logger.LogBooking("ANALYZE", bookingID, fmt.Sprintf("consistent=%t expected=%s actual=%s discrepancies=%d",
			report.Verdict.IsConsistent,
			report.Verdict.ExpectedAmount.StringFixed(2),
			report.Verdict.ActualAmount.StringFixed(2),
			len(report.Verdict.Discrepancies)))
	}

	// Step 4: persist snapshot, cache, publish
	if err := s.DB.SaveSnapshot(ctx, report.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save snapshot for booking %d: %w", bookingID, err)
	}

	if s.Cache != nil {
		if err := s.Cache.SetReport(ctx, report); err != nil {
			s.logger.Warn("CACHE", fmt.Sprintf("Failed to cache report for booking %d: %v", bookingID, err))
		}
	}

	if !report.IsConsistent() && s.Kafka != nil {
		if err := s.Kafka.PublishDiscrepancy(ctx, report); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish discrepancy for booking %d: %v", bookingID, err))
		}
	}

	return report, nil
}

// PriceBooking returns the pricing breakdown only, without touching the ledger.
func (s *Service) PriceBooking(ctx context.Context, bookingID int64, opts pricing.Options) (*pricing.PriceBreakdown, error) {
	return s.PriceBookingInScope(ctx, Scope{}, bookingID, opts)
}

func (s *Service) PriceBookingInScope(ctx context.Context, scope Scope, bookingID int64, opts pricing.Options) (*pricing.PriceBreakdown, error) {
	booking, pc, err := s.load(ctx, scope, bookingID)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.Analyzer.pricing.ComputeTotal(pc, booking, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to price booking %d: %w", bookingID, err)
	}
	return breakdown, nil
}

// HandlePaymentEvent drops the cached report of the booking and analyzes it again.
func (s *Service) HandlePaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	if event.BookingID == 0 {
		return fmt.Errorf("payment event %q has no booking id", event.Type)
	}
	s.logger.LogProcess("PAYMENT_EVENT", fmt.Sprintf("%s for booking %d (payment %d, status %s)",
		event.Type, event.BookingID, event.PaymentID, event.Status))

	if s.Cache != nil {
		if err := s.Cache.InvalidateReport(ctx, event.BookingID); err != nil {
			s.logger.Warn("CACHE", fmt.Sprintf("Failed to invalidate report for booking %d: %v", event.BookingID, err))
		}
	}

	_, err := s.AnalyzeBooking(ctx, event.BookingID, true)
	return err
}

func (s *Service) load(ctx context.Context, scope Scope, bookingID int64) (*models.Booking, pricing.PricingContext, error) {
	booking, err := s.DB.LoadBooking(ctx, bookingID)
	if err != nil {
		return nil, pricing.PricingContext{}, fmt.Errorf("failed to load booking %d: %w", bookingID, err)
	}
	if err := scope.check(bookingID, booking.SchoolID); err != nil {
		s.logger.LogSecurity("SCHOOL_SCOPE", err.Error())
		return nil, pricing.PricingContext{}, err
	}

	school, err := s.DB.GetSchool(ctx, booking.SchoolID)
	if err != nil {
		if !errors.Is(err, models.ErrSchoolNotFound) {
			return nil, pricing.PricingContext{}, fmt.Errorf("failed to load school %d: %w", booking.SchoolID, err)
		}
		s.logger.Warn("RECONCILE", fmt.Sprintf("School %d not found, using default insurance percent", booking.SchoolID))
		school = &models.School{ID: booking.SchoolID, InsurancePercent: s.cfg.DefaultInsurancePercent}
	}

	return booking, pricing.PricingContext{Now: s.now(), School: *school}, nil
}
