package reconciliation

import (
	"fmt"

	"ms-booking-finance/internal/ledger"
	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

type DiscrepancyType string

const (
	Underpayment                   DiscrepancyType = "Underpayment"
	Overpayment                    DiscrepancyType = "Overpayment"
	UnprocessedCancellation        DiscrepancyType = "UnprocessedCancellation"
	OverprocessedCancellation      DiscrepancyType = "OverprocessedCancellation"
	PartialCancellationDiscrepancy DiscrepancyType = "PartialCancellationDiscrepancy"
	VoucherExcess                  DiscrepancyType = "VoucherExcess"
	PaymentStatusInconsistency     DiscrepancyType = "PaymentStatusInconsistency"
	MultipleRefunds                DiscrepancyType = "MultipleRefunds"
	DataIntegrity                  DiscrepancyType = "DataIntegrity"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Direction string

const (
	ClientOwes Direction = "client_owes"
	SchoolOwes Direction = "school_owes"
	Balanced   Direction = "balanced"
)

type Discrepancy struct {
	Type        DiscrepancyType `json:"type"`
	Severity    Severity        `json:"severity"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type Verdict struct {
	IsConsistent          bool            `json:"is_consistent"`
	ExpectedAmount        decimal.Decimal `json:"expected_amount"`
	ActualAmount          decimal.Decimal `json:"actual_amount"`
	MainDiscrepancyAmount decimal.Decimal `json:"main_discrepancy_amount"`
	Direction             Direction       `json:"direction"`
	Discrepancies         []Discrepancy   `json:"discrepancies"`
}

var (
	DefaultTolerance             = decimal.RequireFromString("0.50")
	DefaultHighSeverityThreshold = decimal.NewFromInt(10)
)

// Judge compares what a booking should cost with what its ledger shows.
type Judge struct {
	Tolerance             decimal.Decimal
	HighSeverityThreshold decimal.Decimal
}

func NewJudge(tolerance, highSeverity decimal.Decimal) *Judge {
	return &Judge{Tolerance: tolerance, HighSeverityThreshold: highSeverity}
}

func DefaultJudge() *Judge {
	return NewJudge(DefaultTolerance, DefaultHighSeverityThreshold)
}

// Evaluate returns the verdict for one booking. For partially cancelled
// bookings expectedTotal must already be the active-share price.
func (j *Judge) Evaluate(booking *models.Booking, expectedTotal decimal.Decimal, l *ledger.Ledger) Verdict {
	expected := expectedTotal
	if booking.Status == models.BookingStatusCancelled {
		expected = decimal.Zero
	}
	net := l.NetBalance
	diff := net.Sub(expected)

	v := Verdict{
		IsConsistent:          j.withinTolerance(diff),
		ExpectedAmount:        expected,
		ActualAmount:          net,
		MainDiscrepancyAmount: diff.Abs(),
		Direction:             Balanced,
		Discrepancies:         []Discrepancy{},
	}

	if !v.IsConsistent {
		if diff.IsNegative() {
			v.Direction = ClientOwes
		} else {
			v.Direction = SchoolOwes
		}
		v.Discrepancies = append(v.Discrepancies, j.statusDiscrepancy(booking.Status, expected, net, diff))
	}

	v.Discrepancies = append(v.Discrepancies, j.crossChecks(booking, expected, l)...)
	return v
}

func (j *Judge) withinTolerance(diff decimal.Decimal) bool {
	return diff.Abs().LessThanOrEqual(j.Tolerance)
}

func (j *Judge) severity(amount decimal.Decimal) Severity {
	if amount.Abs().GreaterThan(j.HighSeverityThreshold) {
		return SeverityHigh
	}
	return SeverityMedium
}

func (j *Judge) statusDiscrepancy(status models.BookingStatus, expected, net, diff decimal.Decimal) Discrepancy {
	amount := diff.Abs()
	d := Discrepancy{Amount: amount, Severity: j.severity(amount)}

	switch status {
	case models.BookingStatusCancelled:
		if diff.IsPositive() {
			d.Type = UnprocessedCancellation
			d.Description = fmt.Sprintf("cancelled booking still holds %s", net.StringFixed(2))
		} else {
			d.Type = OverprocessedCancellation
			d.Description = fmt.Sprintf("cancelled booking returned %s more than was received", amount.StringFixed(2))
		}
	case models.BookingStatusPartiallyCancelled:
		d.Type = PartialCancellationDiscrepancy
		d.Description = fmt.Sprintf("active items cost %s but balance is %s", expected.StringFixed(2), net.StringFixed(2))
	default:
		if diff.IsNegative() {
			d.Type = Underpayment
			d.Description = fmt.Sprintf("expected %s, received %s", expected.StringFixed(2), net.StringFixed(2))
		} else {
			d.Type = Overpayment
			d.Description = fmt.Sprintf("expected %s, received %s", expected.StringFixed(2), net.StringFixed(2))
		}
	}
	return d
}

func (j *Judge) crossChecks(booking *models.Booking, expected decimal.Decimal, l *ledger.Ledger) []Discrepancy {
	var out []Discrepancy

	netVouchers := l.TotalVouchersUsed.Sub(l.TotalVouchersRefunded)
	if excess := netVouchers.Sub(expected); excess.GreaterThan(j.Tolerance) {
		out = append(out, Discrepancy{
			Type:        VoucherExcess,
			Severity:    j.severity(excess),
			Amount:      excess,
			Description: fmt.Sprintf("vouchers cover %s against an expected %s", netVouchers.StringFixed(2), expected.StringFixed(2)),
		})
	}

	if !booking.Paid &&
		booking.Status != models.BookingStatusCancelled &&
		l.VoucherCount() == 0 &&
		expected.IsPositive() &&
		j.withinTolerance(l.NetBalance.Sub(expected)) {
		out = append(out, Discrepancy{
			Type:        PaymentStatusInconsistency,
			Severity:    SeverityLow,
			Amount:      decimal.Zero,
			Description: "booking is fully paid but not flagged as paid",
		})
	}

	if l.RefundEvents > 2 {
		out = append(out, Discrepancy{
			Type:        MultipleRefunds,
			Severity:    SeverityLow,
			Amount:      l.TotalRefunded.Add(l.TotalVouchersRefunded),
			Description: fmt.Sprintf("%d refund events recorded", l.RefundEvents),
		})
	}
	return out
}

// IssueDiscrepancy summarises data problems found while pricing or replaying.
// It never affects consistency.
func IssueDiscrepancy(issues []models.Issue) (Discrepancy, bool) {
	if len(issues) == 0 {
		return Discrepancy{}, false
	}
	return Discrepancy{
		Type:        DataIntegrity,
		Severity:    SeverityLow,
		Amount:      decimal.Zero,
		Description: fmt.Sprintf("%d data issue(s), first: %s", len(issues), issues[0].Message),
	}, true
}
