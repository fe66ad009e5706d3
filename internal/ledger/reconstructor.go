// Package ledger replays the payments and voucher movements of a booking
// into a chronological timeline with a running balance.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/voucher"

	"github.com/shopspring/decimal"
)

type Reconstructor struct {
	interpreter voucher.Interpreter
}

func NewReconstructor(interpreter voucher.Interpreter) *Reconstructor {
	if interpreter == nil {
		interpreter = voucher.NewHeuristicInterpreter()
	}
	return &Reconstructor{interpreter: interpreter}
}

func (r *Reconstructor) Reconstruct(booking *models.Booking) (*Ledger, error) {
	if booking == nil {
		return nil, models.ErrNilBooking
	}

	l := &Ledger{
		TotalPaid:             decimal.Zero,
		TotalRefunded:         decimal.Zero,
		TotalNoRefund:         decimal.Zero,
		TotalVouchersUsed:     decimal.Zero,
		TotalVouchersRefunded: decimal.Zero,
		NetBalance:            decimal.Zero,
		Timeline:              []TimelineEntry{},
		Milestones:            []Milestone{},
	}

	entries := r.paymentEntries(booking, l)
	entries = append(entries, r.voucherEntries(booking, l)...)

	// Payments were appended before vouchers, so equal timestamps keep
	// payments first.
	slices.SortStableFunc(entries, func(a, b TimelineEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	l.replay(entries)
	l.NoRefundEvents = classifyNoRefunds(entries)
	return l, nil
}

func (r *Reconstructor) paymentEntries(booking *models.Booking, l *Ledger) []TimelineEntry {
	var entries []TimelineEntry
	for _, p := range booking.Payments {
		if p == nil {
			continue
		}
		if !p.Status.AffectsBalance() {
			l.IgnoredPayments++
			continue
		}
		entries = append(entries, TimelineEntry{
			Timestamp:        p.CreatedAt,
			Source:           SourcePayment,
			Kind:             EventKind(p.Status),
			Amount:           p.Amount.Abs(),
			Method:           InferMethod(p),
			PaymentID:        p.ID,
			PaymentReference: p.PayrexxReference,
		})
	}
	return entries
}

func (r *Reconstructor) voucherEntries(booking *models.Booking, l *Ledger) []TimelineEntry {
	var entries []TimelineEntry
	for _, log := range booking.VoucherLogs {
		if log == nil {
			continue
		}
		if log.Voucher == nil {
			l.Issues = append(l.Issues, models.Issue{
				Type:         models.IssueDataIntegrity,
				Message:      fmt.Sprintf("voucher log %d references missing voucher %d", log.ID, log.VoucherID),
				VoucherLogID: log.ID,
			})
		}

		c := r.interpreter.Classify(log, log.Voucher, booking)
		kind := KindVoucherPayment
		if c.Type == voucher.EntryRefund {
			kind = KindVoucherRefund
		}
		entry := TimelineEntry{
			Timestamp:     log.CreatedAt,
			Source:        SourceVoucher,
			Kind:          kind,
			Amount:        c.Amount,
			Method:        MethodVoucher,
			VoucherLogID:  log.ID,
			Rule:          c.Rule,
			Reason:        c.Reason,
			LowConfidence: c.LowConfidence,
		}
		if log.Voucher != nil {
			entry.VoucherCode = log.Voucher.Code
		}
		entries = append(entries, entry)
	}
	return entries
}

func (l *Ledger) replay(entries []TimelineEntry) {
	balance := decimal.Zero
	seenNonZero := false
	firstPaymentSeen := false

	for i := range entries {
		e := &entries[i]
		e.Sequence = i + 1

		switch e.Kind {
		case KindPaid:
			l.TotalPaid = l.TotalPaid.Add(e.Amount)
		case KindRefund, KindPartialRefund:
			l.TotalRefunded = l.TotalRefunded.Add(e.Amount)
		case KindNoRefund:
			l.TotalNoRefund = l.TotalNoRefund.Add(e.Amount)
		case KindVoucherPayment:
			l.TotalVouchersUsed = l.TotalVouchersUsed.Add(e.Amount)
		case KindVoucherRefund:
			l.TotalVouchersRefunded = l.TotalVouchersRefunded.Add(e.Amount)
		}
		if e.Kind.IsRefund() {
			l.RefundEvents++
		}

		balance = balance.Add(e.SignedAmount())
		e.BalanceAfter = balance

		if e.Kind.Credits() && !firstPaymentSeen {
			firstPaymentSeen = true
			l.Milestones = append(l.Milestones, Milestone{
				Type:      MilestoneFirstPayment,
				Sequence:  e.Sequence,
				Timestamp: e.Timestamp,
				Balance:   balance,
			})
		}
		if balance.IsZero() {
			if seenNonZero {
				l.Milestones = append(l.Milestones, Milestone{
					Type:      MilestoneBalanceZeroed,
					Sequence:  e.Sequence,
					Timestamp: e.Timestamp,
					Balance:   balance,
				})
			}
			seenNonZero = false
		} else {
			seenNonZero = true
		}
	}

	l.Timeline = entries
	l.NetBalance = balance.Round(2)
}

// classifyNoRefunds splits no_refund rows around the earliest paid payment.
func classifyNoRefunds(entries []TimelineEntry) []NoRefundEvent {
	var firstPaid time.Time
	for _, e := range entries {
		if e.Kind == KindPaid {
			firstPaid = e.Timestamp
			break
		}
	}

	var out []NoRefundEvent
	for _, e := range entries {
		if e.Kind != KindNoRefund {
			continue
		}
		phase := PostPayment
		if firstPaid.IsZero() || e.Timestamp.Before(firstPaid) {
			phase = PrePayment
		}
		out = append(out, NoRefundEvent{
			PaymentID: e.PaymentID,
			Amount:    e.Amount,
			Timestamp: e.Timestamp,
			Phase:     phase,
		})
	}
	return out
}
