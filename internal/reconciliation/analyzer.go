// Package reconciliation decides whether the money recorded against a
// booking matches what the booking should cost, and what to do when it
// does not.
package reconciliation

import (
	"fmt"
	"time"

	"ms-booking-finance/internal/ledger"
	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/pricing"
	"ms-booking-finance/internal/voucher"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MethodFull          = "full"
	MethodErrorFallback = "error_fallback"
)

// FallbackSums are the raw figures reported when the full analysis fails.
type FallbackSums struct {
	RawPaidTotal    decimal.Decimal `json:"raw_paid_total"`
	RawVoucherTotal decimal.Decimal `json:"raw_voucher_total"`
}

type FullReport struct {
	ReportID  string `json:"report_id"`
	BookingID int64  `json:"booking_id"`
	SchoolID  int64  `json:"school_id"`
	Status    string `json:"status"`
	Currency  string `json:"currency"`

	Pricing         *pricing.PriceBreakdown `json:"pricing,omitempty"`
	Ledger          *ledger.Ledger          `json:"ledger,omitempty"`
	Verdict         *Verdict                `json:"verdict,omitempty"`
	Recommendations []Recommendation        `json:"recommendations"`
	Issues          []models.Issue          `json:"issues,omitempty"`

	StoredTotal decimal.Decimal `json:"stored_total"`
	// StoredDifference is stored total minus calculated total.
	StoredDifference decimal.Decimal `json:"stored_difference"`

	AnalysisMethod string        `json:"analysis_method"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
	Error          string        `json:"error,omitempty"`
	Fallback       *FallbackSums `json:"fallback,omitempty"`
}

// Snapshot condenses the report into the row persisted per booking.
func (r *FullReport) Snapshot() *models.FinancialSnapshot {
	s := &models.FinancialSnapshot{
		BookingID:      r.BookingID,
		SchoolID:       r.SchoolID,
		Status:         r.Status,
		ExpectedTotal:  r.StoredTotal,
		NetBalance:     decimal.Zero,
		AnalysisMethod: r.AnalysisMethod,
		AnalyzedAt:     r.AnalyzedAt,
	}
	if r.Verdict != nil {
		s.ExpectedTotal = r.Verdict.ExpectedAmount
		s.NetBalance = r.Verdict.ActualAmount
		s.IsConsistent = r.Verdict.IsConsistent
		s.DiscrepancyAmount = r.Verdict.MainDiscrepancyAmount
		s.DiscrepancyCount = len(r.Verdict.Discrepancies)
	} else if r.Fallback != nil {
		s.NetBalance = r.Fallback.RawPaidTotal.Add(r.Fallback.RawVoucherTotal)
	}
	return s
}

// IsConsistent is false for fallback reports.
func (r *FullReport) IsConsistent() bool {
	return r.Verdict != nil && r.Verdict.IsConsistent
}

type Analyzer struct {
	pricing *pricing.Engine
	ledger  *ledger.Reconstructor
	judge   *Judge
}

func NewAnalyzer(judge *Judge, interpreter voucher.Interpreter) *Analyzer {
	if judge == nil {
		judge = DefaultJudge()
	}
	return &Analyzer{
		pricing: pricing.NewEngine(),
		ledger:  ledger.NewReconstructor(interpreter),
		judge:   judge,
	}
}

// AnalyzeFinancialReality always returns a report. Failures, panics
// included, produce an error_fallback report built from raw sums.
func (a *Analyzer) AnalyzeFinancialReality(pc pricing.PricingContext, booking *models.Booking, opts pricing.Options) (report *FullReport) {
	defer func() {
		if r := recover(); r != nil {
			report = fallbackReport(pc, booking, fmt.Errorf("analysis panicked: %v", r))
		}
	}()

	report, err := a.analyze(pc, booking, opts)
	if err != nil {
		return fallbackReport(pc, booking, err)
	}
	return report
}

func (a *Analyzer) analyze(pc pricing.PricingContext, booking *models.Booking, opts pricing.Options) (*FullReport, error) {
	if booking == nil {
		return nil, models.ErrNilBooking
	}

	var breakdown *pricing.PriceBreakdown
	var err error
	if booking.Status == models.BookingStatusPartiallyCancelled {
		breakdown, err = a.pricing.ComputeActiveShare(pc, booking, opts)
	} else {
		breakdown, err = a.pricing.ComputeTotal(pc, booking, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("pricing booking %d: %w", booking.ID, err)
	}

	l, err := a.ledger.Reconstruct(booking)
	if err != nil {
		return nil, fmt.Errorf("reconstructing ledger of booking %d: %w", booking.ID, err)
	}

	verdict := a.judge.Evaluate(booking, breakdown.TotalFinal, l)

	issues := append(append([]models.Issue{}, breakdown.Issues...), l.Issues...)
	if d, ok := IssueDiscrepancy(issues); ok {
		verdict.Discrepancies = append(verdict.Discrepancies, d)
	}

	return &FullReport{
		ReportID:         uuid.New().String(),
		BookingID:        booking.ID,
		SchoolID:         booking.SchoolID,
		Status:           booking.Status.String(),
		Currency:         booking.Currency,
		Pricing:          breakdown,
		Ledger:           l,
		Verdict:          &verdict,
		Recommendations:  GenerateRecommendations(verdict.Discrepancies),
		Issues:           issues,
		StoredTotal:      booking.PriceTotal,
		StoredDifference: booking.PriceTotal.Sub(breakdown.TotalFinal),
		AnalysisMethod:   MethodFull,
		AnalyzedAt:       pc.Now,
	}, nil
}

func fallbackReport(pc pricing.PricingContext, booking *models.Booking, err error) *FullReport {
	report := &FullReport{
		ReportID:        uuid.New().String(),
		Recommendations: []Recommendation{},
		StoredTotal:     decimal.Zero,
		AnalysisMethod:  MethodErrorFallback,
		AnalyzedAt:      pc.Now,
		Error:           err.Error(),
		Fallback:        &FallbackSums{RawPaidTotal: decimal.Zero, RawVoucherTotal: decimal.Zero},
	}
	if booking == nil {
		return report
	}

	report.BookingID = booking.ID
	report.SchoolID = booking.SchoolID
	report.Status = booking.Status.String()
	report.Currency = booking.Currency
	report.StoredTotal = booking.PriceTotal
	for _, p := range booking.Payments {
		if p != nil && p.Status == models.PaymentStatusPaid {
			report.Fallback.RawPaidTotal = report.Fallback.RawPaidTotal.Add(p.Amount)
		}
	}
	for _, log := range booking.VoucherLogs {
		if log != nil {
			report.Fallback.RawVoucherTotal = report.Fallback.RawVoucherTotal.Add(log.Amount.Abs())
		}
	}
	return report
}
