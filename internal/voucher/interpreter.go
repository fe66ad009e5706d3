// Package voucher decides whether a voucher log entry moved value into or
// out of a booking. The stored sign of a log amount cannot be trusted, so
// the decision is made from the voucher's current state.
package voucher

import (
	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryPayment EntryType = "payment"
	EntryRefund  EntryType = "refund"
)

type Classification struct {
	Type   EntryType       `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Rule   int             `json:"rule"`
	Reason string          `json:"reason"`
	// LowConfidence marks the final fallback, taken with no evidence either way.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Interpreter classifies one voucher log entry. The voucher may be nil when
// the referenced row no longer exists.
type Interpreter interface {
	Classify(log *models.VoucherLog, voucher *models.Voucher, booking *models.Booking) Classification
}

// HeuristicInterpreter applies an ordered list of rules; the first rule
// that matches decides.
type HeuristicInterpreter struct{}

func NewHeuristicInterpreter() *HeuristicInterpreter {
	return &HeuristicInterpreter{}
}

func (h *HeuristicInterpreter) Classify(log *models.VoucherLog, voucher *models.Voucher, booking *models.Booking) Classification {
	amount := log.Amount.Abs()
	used := decimal.Zero

	if voucher != nil {
		used = voucher.UsedAmount()

		if voucher.RemainingBalance.IsZero() && amount.Equal(used) {
			return Classification{Type: EntryPayment, Amount: amount, Rule: 1, Reason: "voucher fully used and log amount matches usage"}
		}

		if voucher.Payed && used.IsPositive() {
			switch {
			case amount.Equal(used):
				return Classification{Type: EntryPayment, Amount: amount, Rule: 2, Reason: "paid voucher, log amount matches usage"}
			case amount.LessThan(used):
				return Classification{Type: EntryPayment, Amount: amount, Rule: 2, Reason: "paid voucher, partial use"}
			default:
				return Classification{Type: EntryRefund, Amount: amount, Rule: 2, Reason: "paid voucher, log amount exceeds usage"}
			}
		}
	}

	if log.Amount.IsPositive() {
		return Classification{Type: EntryPayment, Amount: amount, Rule: 3, Reason: "positive log amount"}
	}

	status := models.BookingStatus(0)
	if booking != nil {
		status = booking.Status
	}
	switch {
	case status == models.BookingStatusActive && used.IsPositive():
		return Classification{Type: EntryPayment, Amount: amount, Rule: 4, Reason: "active booking with voucher usage, sign overridden"}
	case status == models.BookingStatusCancelled:
		return Classification{Type: EntryRefund, Amount: amount, Rule: 4, Reason: "non-positive amount on cancelled booking"}
	default:
		return Classification{Type: EntryPayment, Amount: amount, Rule: 4, Reason: "no evidence of refund, assumed payment", LowConfidence: true}
	}
}
